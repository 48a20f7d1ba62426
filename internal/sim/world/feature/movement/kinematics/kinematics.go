// Package kinematics moves a player's bounding box through the tile grid.
//
// Collision is resolved one axis at a time, vertical first. A body entering
// an inside corner can snag on the vertical pass where a swept box test would
// slide; callers should expect that.
package kinematics

import (
	"math"

	"acre.game/internal/sim/catalogs"
	"acre.game/internal/sim/tuning"
	"acre.game/internal/sim/world/kernel/model"
)

const eps = 1e-6

// Terrain is the read-only view of the grid the engine needs.
type Terrain interface {
	IsSolid(x, y int) bool
	TileAt(x, y int) catalogs.TileID
}

type Params struct {
	TileSize     float64
	Gravity      float64
	Speed        float64
	JumpForce    float64
	MaxFallSpeed float64
	MaxDelta     float64
	Width        float64
	Height       float64
}

func ParamsFrom(t tuning.Tuning) Params {
	return Params{
		TileSize:     float64(t.TileSize),
		Gravity:      t.Physics.Gravity,
		Speed:        t.Physics.PlayerSpeed,
		JumpForce:    t.Physics.JumpForce,
		MaxFallSpeed: t.Physics.MaxFallSpeed,
		MaxDelta:     t.Physics.MaxFrameDelta,
		Width:        t.Physics.BodyWidth,
		Height:       t.Physics.BodyHeight,
	}
}

func DefaultParams() Params { return ParamsFrom(tuning.Defaults()) }

// Input is the held state of the movement controls for one frame.
type Input struct {
	Left  bool
	Right bool
	Jump  bool
}

type Result struct {
	Jumped     bool
	HitCeiling bool
	HitWall    bool
}

// Step advances b by dt seconds. The grounded flag from the previous frame
// gates the jump; it is recomputed by the vertical pass.
func Step(b *model.Body, in Input, dt float64, p Params, t Terrain) Result {
	var res Result
	if dt <= 0 {
		return res
	}
	if p.MaxDelta > 0 && dt > p.MaxDelta {
		dt = p.MaxDelta
	}

	switch {
	case in.Left && !in.Right:
		b.Vel.X = -p.Speed
	case in.Right && !in.Left:
		b.Vel.X = p.Speed
	default:
		b.Vel.X = 0
	}

	b.Vel.Y += p.Gravity * dt
	if b.Vel.Y > p.MaxFallSpeed {
		b.Vel.Y = p.MaxFallSpeed
	}
	if in.Jump && b.Grounded {
		b.Vel.Y = -p.JumpForce
		b.Grounded = false
		res.Jumped = true
	}

	res.HitCeiling = moveVertical(b, dt, p, t)
	res.HitWall = moveHorizontal(b, dt, p, t)
	return res
}

func moveVertical(b *model.Body, dt float64, p Params, t Terrain) (ceiling bool) {
	y := b.Pos.Y + b.Vel.Y*dt
	c0, c1 := span(b.Pos.X, p.Width, p.TileSize)
	b.Grounded = false

	switch {
	case b.Vel.Y > 0:
		first := lastCovered(b.Pos.Y+p.Height, p.TileSize) + 1
		last := lastCovered(y+p.Height, p.TileSize)
		for r := first; r <= last; r++ {
			if rowBlocked(t, r, c0, c1) {
				y = float64(r)*p.TileSize - p.Height
				b.Vel.Y = 0
				b.Grounded = true
				break
			}
		}
	case b.Vel.Y < 0:
		first := cell(b.Pos.Y, p.TileSize) - 1
		last := cell(y, p.TileSize)
		for r := first; r >= last; r-- {
			if rowBlocked(t, r, c0, c1) {
				y = float64(r+1) * p.TileSize
				b.Vel.Y = 0
				ceiling = true
				break
			}
		}
	}
	b.Pos.Y = y
	return ceiling
}

func moveHorizontal(b *model.Body, dt float64, p Params, t Terrain) (wall bool) {
	x := b.Pos.X + b.Vel.X*dt
	r0, r1 := span(b.Pos.Y, p.Height, p.TileSize)

	switch {
	case b.Vel.X > 0:
		first := lastCovered(b.Pos.X+p.Width, p.TileSize) + 1
		last := lastCovered(x+p.Width, p.TileSize)
		for c := first; c <= last; c++ {
			if colBlocked(t, c, r0, r1) {
				x = float64(c)*p.TileSize - p.Width
				b.Vel.X = 0
				wall = true
				break
			}
		}
	case b.Vel.X < 0:
		first := cell(b.Pos.X, p.TileSize) - 1
		last := cell(x, p.TileSize)
		for c := first; c >= last; c-- {
			if colBlocked(t, c, r0, r1) {
				x = float64(c+1) * p.TileSize
				b.Vel.X = 0
				wall = true
				break
			}
		}
	}
	b.Pos.X = x
	return wall
}

func rowBlocked(t Terrain, row, c0, c1 int) bool {
	for c := c0; c <= c1; c++ {
		if t.IsSolid(c, row) {
			return true
		}
	}
	return false
}

func colBlocked(t Terrain, col, r0, r1 int) bool {
	for r := r0; r <= r1; r++ {
		if t.IsSolid(col, r) {
			return true
		}
	}
	return false
}

func cell(v, size float64) int { return int(math.Floor(v / size)) }

// lastCovered is the last cell a box whose far edge is at edge reaches into.
// An edge exactly on a boundary does not reach the next cell; any amount past
// it does, so a sweep never leaves the box inside a solid cell.
func lastCovered(edge, size float64) int { return int(math.Ceil(edge/size)) - 1 }

// span returns the first and last cell indices covered by [lo, lo+size).
func span(lo, size, tile float64) (int, int) {
	return cell(lo, tile), cell(lo+size-eps, tile)
}

// Cells returns the inclusive cell range covered by a box at pos.
func Cells(pos model.Vec2, p Params) (c0, r0, c1, r1 int) {
	c0, c1 = span(pos.X, p.Width, p.TileSize)
	r0, r1 = span(pos.Y, p.Height, p.TileSize)
	return
}

// Overlaps reports whether a box at pos intersects any solid cell.
func Overlaps(pos model.Vec2, p Params, t Terrain) bool {
	c0, r0, c1, r1 := Cells(pos, p)
	for r := r0; r <= r1; r++ {
		if rowBlocked(t, r, c0, c1) {
			return true
		}
	}
	return false
}

// OverlapsCell reports whether a box at pos covers cell (x,y).
func OverlapsCell(pos model.Vec2, p Params, x, y int) bool {
	c0, r0, c1, r1 := Cells(pos, p)
	return x >= c0 && x <= c1 && y >= r0 && y <= r1
}

// Depenetrate lifts a body stuck inside solid cells to the first free spot
// above it, one row at a time.
func Depenetrate(b *model.Body, p Params, t Terrain, maxRows int) bool {
	if !Overlaps(b.Pos, p, t) {
		return false
	}
	y := b.Pos.Y
	for i := 0; i < maxRows; i++ {
		y = float64(cell(y+p.Height-eps, p.TileSize))*p.TileSize - p.Height
		if !Overlaps(model.Vec2{X: b.Pos.X, Y: y}, p, t) {
			b.Pos.Y = y
			b.Vel.Y = 0
			b.Grounded = true
			return true
		}
	}
	return false
}

// ContactDamage is the highest damage of any tile the box touches.
func ContactDamage(pos model.Vec2, p Params, t Terrain) int {
	c0, r0, c1, r1 := Cells(pos, p)
	best := 0
	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			def, ok := catalogs.Tile(t.TileAt(c, r))
			if ok && def.Damage > best {
				best = def.Damage
			}
		}
	}
	return best
}
