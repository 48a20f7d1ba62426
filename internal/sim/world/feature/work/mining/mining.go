package mining

import (
	"acre.game/internal/sim/catalogs"
)

func ToolFamilyForTile(id catalogs.TileID) catalogs.ToolFamily {
	switch id {
	case catalogs.TileDirt, catalogs.TileGrass, catalogs.TileSand:
		return catalogs.ToolFamilyShovel
	case catalogs.TileLog, catalogs.TilePlanks, catalogs.TileCraftingTable:
		return catalogs.ToolFamilyAxe
	case catalogs.TileLeaves, catalogs.TileCactus, catalogs.TileTorch:
		return catalogs.ToolFamilyNone
	default:
		return catalogs.ToolFamilyPickaxe
	}
}

// BestToolPower is the highest power among held tools of family, or hand
// when none is held.
func BestToolPower(inv map[catalogs.ItemID]int, family catalogs.ToolFamily, hand float64) float64 {
	best := hand
	if family == catalogs.ToolFamilyNone {
		return best
	}
	for id, n := range inv {
		if n <= 0 {
			continue
		}
		def, ok := catalogs.Item(id)
		if !ok || def.Tool != family {
			continue
		}
		if def.Power > best {
			best = def.Power
		}
	}
	return best
}

// BreakTime is seconds of continuous mining needed for a tile.
func BreakTime(id catalogs.TileID, power float64) float64 {
	def, ok := catalogs.Tile(id)
	if !ok || id == catalogs.TileAir || id == catalogs.TileBoundary {
		return 0
	}
	if power <= 0 {
		power = 1
	}
	return def.Hardness / power
}

// Progress tracks mining of one cell. Switching target restarts it.
type Progress struct {
	X, Y    int
	Elapsed float64
	active  bool
}

// Advance adds dt to the current target and reports whether need is met.
func (p *Progress) Advance(x, y int, dt, need float64) bool {
	if !p.active || p.X != x || p.Y != y {
		*p = Progress{X: x, Y: y, active: true}
	}
	if dt > 0 {
		p.Elapsed += dt
	}
	return p.Elapsed >= need
}

func (p *Progress) Reset() { *p = Progress{} }

// Fraction is the completed share of need in [0,1].
func (p *Progress) Fraction(need float64) float64 {
	if !p.active {
		return 0
	}
	if need <= 0 {
		return 1
	}
	f := p.Elapsed / need
	if f > 1 {
		return 1
	}
	return f
}
