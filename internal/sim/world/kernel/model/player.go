package model

import (
	"fmt"

	"acre.game/internal/sim/world/feature/economy/inventory"
)

type Avatar string

const (
	AvatarMale     Avatar = "male"
	AvatarFemale   Avatar = "female"
	AvatarAlien    Avatar = "alien"
	AvatarSkeleton Avatar = "skeleton"
	AvatarZombie   Avatar = "zombie"
	AvatarGnome    Avatar = "gnome"
)

// Avatars lists the selectable variants in menu order.
var Avatars = []Avatar{AvatarMale, AvatarFemale, AvatarAlien, AvatarSkeleton, AvatarZombie, AvatarGnome}

func (a Avatar) Valid() bool {
	for _, v := range Avatars {
		if a == v {
			return true
		}
	}
	return false
}

func ParseAvatar(s string) (Avatar, error) {
	if s == "" {
		return AvatarMale, nil
	}
	a := Avatar(s)
	if !a.Valid() {
		return "", fmt.Errorf("unknown avatar %q", s)
	}
	return a, nil
}

type Vec2 struct {
	X float64
	Y float64
}

func (v Vec2) Add(o Vec2) Vec2      { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }
func (v Vec2) Scale(k float64) Vec2 { return Vec2{X: v.X * k, Y: v.Y * k} }
func (v Vec2) String() string       { return fmt.Sprintf("(%.1f,%.1f)", v.X, v.Y) }

// Body is the physics-volatile part of a player. It is owned by the local
// simulation and never taken from a remote snapshot.
type Body struct {
	Pos      Vec2 // top-left of the bounding box, pixels
	Vel      Vec2 // pixels per second
	Grounded bool
}

type Player struct {
	ID     string
	Name   string
	Avatar Avatar

	Body

	Health    int
	MaxHealth int
	Selected  int

	Inventory *inventory.Ledger

	// Seconds until contact damage can hit again.
	HurtCooldown float64
}

func NewPlayer(id, name string, avatar Avatar, maxHealth, hotbarSize int) *Player {
	if !avatar.Valid() {
		avatar = AvatarMale
	}
	return &Player{
		ID:        id,
		Name:      name,
		Avatar:    avatar,
		Health:    maxHealth,
		MaxHealth: maxHealth,
		Inventory: inventory.New(hotbarSize),
	}
}

func (p *Player) SetHealth(h int) {
	if h < 0 {
		h = 0
	}
	if h > p.MaxHealth {
		h = p.MaxHealth
	}
	p.Health = h
}

// SelectedSlot returns the hotbar slot under the cursor, if it holds anything.
func (p *Player) SelectedSlot() (inventory.Slot, bool) {
	return p.Inventory.Slot(p.Selected)
}

func (p *Player) Select(i int) bool {
	if i < 0 || i >= p.Inventory.HotbarSize() {
		return false
	}
	p.Selected = i
	return true
}
