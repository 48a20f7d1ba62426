package respawn

import (
	"acre.game/internal/sim/world/kernel/model"
	"acre.game/internal/sim/world/terrain/grid"
)

// Fell reports whether a body top at y has dropped past the bottom of the
// world by more than margin pixels.
func Fell(y, worldPixelHeight, margin float64) bool {
	return y > worldPixelHeight+margin
}

// SpawnPoint stands a body on the first solid row of the middle column.
func SpawnPoint(g *grid.Grid, tileSize, bodyWidth, bodyHeight float64) model.Vec2 {
	col := g.Width() / 2
	x := float64(col)*tileSize + (tileSize-bodyWidth)/2
	if x < 0 {
		x = 0
	}
	row := g.SurfaceRow(col)
	return model.Vec2{X: x, Y: float64(row)*tileSize - bodyHeight}
}

// Apply moves p to spawn with zero velocity and full health.
func Apply(p *model.Player, spawn model.Vec2) {
	p.Pos = spawn
	p.Vel = model.Vec2{}
	p.Grounded = false
	p.Health = p.MaxHealth
	p.HurtCooldown = 0
}

// Hurt applies contact damage once per cooldown window and reports whether
// the player died.
func Hurt(p *model.Player, dmg int, cooldown, dt float64) (died bool) {
	if p.HurtCooldown > 0 {
		p.HurtCooldown -= dt
		if p.HurtCooldown < 0 {
			p.HurtCooldown = 0
		}
	}
	if dmg <= 0 || p.HurtCooldown > 0 {
		return false
	}
	p.SetHealth(p.Health - dmg)
	p.HurtCooldown = cooldown
	return p.Health == 0
}
