package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsMatchConstants(t *testing.T) {
	d := Defaults()
	if d.TileSize != TILE_SIZE || d.WorldWidth != WORLD_WIDTH || d.WorldHeight != WORLD_HEIGHT {
		t.Fatalf("world defaults = %d/%d/%d", d.TileSize, d.WorldWidth, d.WorldHeight)
	}
	if d.Physics.Gravity != GRAVITY || d.Physics.JumpForce != JUMP_FORCE || d.Physics.PlayerSpeed != PLAYER_SPEED {
		t.Fatalf("physics defaults = %+v", d.Physics)
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestLoadOverridesOnlyGivenFields(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	raw := "world_width: 64\nphysics:\n  gravity: 1000\nsync:\n  push_probability: 0.5\n"
	if err := os.WriteFile(p, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.WorldWidth != 64 || got.Physics.Gravity != 1000 || got.Sync.PushProbability != 0.5 {
		t.Fatalf("overrides not applied: %+v", got)
	}
	if got.WorldHeight != WORLD_HEIGHT || got.Physics.JumpForce != JUMP_FORCE {
		t.Fatalf("untouched fields lost defaults: %+v", got)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("sync:\n  push_probability: 2\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(p); err == nil {
		t.Fatalf("expected validation error")
	}
}
