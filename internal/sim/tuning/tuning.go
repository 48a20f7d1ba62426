package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Compiled-in gameplay constants. Lengths are in pixels, times in seconds.
const (
	TILE_SIZE    = 32
	WORLD_WIDTH  = 300
	WORLD_HEIGHT = 150
	GRAVITY      = 1800.0
	PLAYER_SPEED = 220.0
	JUMP_FORCE   = 620.0
	WIDTH        = 24.0
	HEIGHT       = 56.0
)

type Tuning struct {
	TileSize    int `yaml:"tile_size"`
	WorldWidth  int `yaml:"world_width"`
	WorldHeight int `yaml:"world_height"`

	Physics  Physics  `yaml:"physics"`
	Player   Player   `yaml:"player"`
	Sync     Sync     `yaml:"sync"`
	WorldGen WorldGen `yaml:"worldgen"`
}

type Physics struct {
	Gravity       float64 `yaml:"gravity"`
	PlayerSpeed   float64 `yaml:"player_speed"`
	JumpForce     float64 `yaml:"jump_force"`
	MaxFallSpeed  float64 `yaml:"max_fall_speed"`
	BodyWidth     float64 `yaml:"body_width"`
	BodyHeight    float64 `yaml:"body_height"`
	RespawnMargin float64 `yaml:"respawn_margin"`
	MaxFrameDelta float64 `yaml:"max_frame_delta"`
}

type Player struct {
	MaxHealth      int     `yaml:"max_health"`
	HotbarSize     int     `yaml:"hotbar_size"`
	ReachTiles     int     `yaml:"reach_tiles"`
	StationRadius  int     `yaml:"station_radius"`
	DamageCooldown float64 `yaml:"damage_cooldown"`
	HandPower      float64 `yaml:"hand_power"`
}

type Sync struct {
	PushProbability float64 `yaml:"push_probability"`
	OutboxSize      int     `yaml:"outbox_size"`
	WriteTimeoutMs  int     `yaml:"write_timeout_ms"`
}

type WorldGen struct {
	SurfaceRatio     float64 `yaml:"surface_ratio"`
	AridFraction     float64 `yaml:"arid_fraction"`
	ShallowDepth     int     `yaml:"shallow_depth"`
	TreePermille     int     `yaml:"tree_permille"`
	CactusPermille   int     `yaml:"cactus_permille"`
	OreScalePermille int     `yaml:"ore_scale_permille"`
	EdgeMargin       int     `yaml:"edge_margin"`
}

func Defaults() Tuning {
	return Tuning{
		TileSize:    TILE_SIZE,
		WorldWidth:  WORLD_WIDTH,
		WorldHeight: WORLD_HEIGHT,
		Physics: Physics{
			Gravity:       GRAVITY,
			PlayerSpeed:   PLAYER_SPEED,
			JumpForce:     JUMP_FORCE,
			MaxFallSpeed:  900,
			BodyWidth:     WIDTH,
			BodyHeight:    HEIGHT,
			RespawnMargin: 200,
			MaxFrameDelta: 0.1,
		},
		Player: Player{
			MaxHealth:      100,
			HotbarSize:     9,
			ReachTiles:     5,
			StationRadius:  3,
			DamageCooldown: 0.5,
			HandPower:      1,
		},
		Sync: Sync{
			PushProbability: 0.1,
			OutboxSize:      256,
			WriteTimeoutMs:  5000,
		},
		WorldGen: WorldGen{
			SurfaceRatio:     0.35,
			AridFraction:     0.30,
			ShallowDepth:     5,
			TreePermille:     90,
			CactusPermille:   70,
			OreScalePermille: 1000,
			EdgeMargin:       3,
		},
	}
}

// Load reads a YAML override file on top of Defaults. Fields absent from the
// file keep their compiled-in values.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	switch {
	case t.TileSize <= 0:
		return fmt.Errorf("tile_size must be > 0")
	case t.WorldWidth <= 0 || t.WorldHeight <= 0:
		return fmt.Errorf("world dimensions must be > 0")
	case t.Physics.BodyWidth <= 0 || t.Physics.BodyHeight <= 0:
		return fmt.Errorf("body size must be > 0")
	case t.Physics.MaxFallSpeed <= 0:
		return fmt.Errorf("max_fall_speed must be > 0")
	case t.Player.MaxHealth <= 0:
		return fmt.Errorf("max_health must be > 0")
	case t.Player.HotbarSize <= 0:
		return fmt.Errorf("hotbar_size must be > 0")
	case t.Sync.PushProbability < 0 || t.Sync.PushProbability > 1:
		return fmt.Errorf("push_probability must be within [0,1]")
	}
	return nil
}

func (t Tuning) WorldPixelWidth() float64  { return float64(t.WorldWidth * t.TileSize) }
func (t Tuning) WorldPixelHeight() float64 { return float64(t.WorldHeight * t.TileSize) }
