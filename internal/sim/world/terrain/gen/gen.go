package gen

import (
	"math"

	"acre.game/internal/sim/catalogs"
	"acre.game/internal/sim/tuning"
	"acre.game/internal/sim/world/logic/mathx"
	"acre.game/internal/sim/world/terrain/grid"
)

// Hash salts keep the independent draws uncorrelated.
const (
	saltPhase  = 0x51
	saltArid   = 0xA1
	saltTree   = 0x7E
	saltCactus = 0xCA
	saltHeight = 0x4E
	saltCoal   = 0xC0
	saltIron   = 0x1E
	saltGold   = 0x60
	saltGem    = 0xD1
)

type Params struct {
	Width  int
	Height int
	Seed   int64

	SurfaceRatio     float64
	AridFraction     float64
	ShallowDepth     int
	TreePermille     int
	CactusPermille   int
	OreScalePermille int
	EdgeMargin       int
}

func DefaultParams(seed int64) Params {
	return ParamsFrom(tuning.Defaults(), seed)
}

func ParamsFrom(t tuning.Tuning, seed int64) Params {
	return Params{
		Width:            t.WorldWidth,
		Height:           t.WorldHeight,
		Seed:             seed,
		SurfaceRatio:     t.WorldGen.SurfaceRatio,
		AridFraction:     t.WorldGen.AridFraction,
		ShallowDepth:     t.WorldGen.ShallowDepth,
		TreePermille:     t.WorldGen.TreePermille,
		CactusPermille:   t.WorldGen.CactusPermille,
		OreScalePermille: t.WorldGen.OreScalePermille,
		EdgeMargin:       t.WorldGen.EdgeMargin,
	}
}

type oreRule struct {
	tile     catalogs.TileID
	salt     int
	minDepth int
	cell     int
	radius   int
	permille uint64
}

// Deeper rules are checked first.
var oreRules = []oreRule{
	{tile: catalogs.TileDiamondOre, salt: saltGem, minDepth: 60, cell: 24, radius: 1, permille: 120},
	{tile: catalogs.TileGoldOre, salt: saltGold, minDepth: 40, cell: 18, radius: 1, permille: 180},
	{tile: catalogs.TileIronOre, salt: saltIron, minDepth: 20, cell: 13, radius: 1, permille: 260},
	{tile: catalogs.TileCoalOre, salt: saltCoal, minDepth: 5, cell: 10, radius: 1, permille: 350},
}

// AridBand returns the half-open column range [lo, hi) of the arid biome.
func AridBand(p Params) (lo, hi int) {
	w := int(math.Round(float64(p.Width) * p.AridFraction))
	if w <= 0 {
		return 0, 0
	}
	if w > p.Width {
		w = p.Width
	}
	if mathx.Hash2(p.Seed, saltArid, saltArid)&1 == 0 {
		return 0, w
	}
	return p.Width - w, p.Width
}

// SurfaceHeight is the ground row for column x before decorations.
func SurfaceHeight(p Params, x int) int {
	base := float64(p.Height) * p.SurfaceRatio
	ph1 := mathx.Roll(mathx.Hash2(p.Seed, saltPhase, 1)) * 2 * math.Pi
	ph2 := mathx.Roll(mathx.Hash2(p.Seed, saltPhase, 2)) * 2 * math.Pi
	fx := float64(x)
	y := base + 4*math.Sin(fx*2*math.Pi/64+ph1) + 2*math.Sin(fx*2*math.Pi/23+ph2)
	top := 10
	bottom := p.Height - p.ShallowDepth - 2
	if bottom < top {
		bottom = top
	}
	return int(mathx.ClampF(math.Round(y), float64(top), float64(bottom)))
}

// Generate builds a side-view world. The result depends only on p.
func Generate(p Params) *grid.Grid {
	g := grid.New(p.Width, p.Height)
	if p.Width <= 0 || p.Height <= 0 {
		return g
	}
	aridLo, aridHi := AridBand(p)
	arid := func(x int) bool { return x >= aridLo && x < aridHi }

	surface := make([]int, p.Width)
	for x := 0; x < p.Width; x++ {
		s := SurfaceHeight(p, x)
		surface[x] = s
		for y := s; y < p.Height; y++ {
			g.SetTile(x, y, stratum(p, x, y, y-s, arid(x)))
		}
	}

	boundary := aridLo
	if aridLo == 0 {
		boundary = aridHi
	}
	lastTree := -1 << 30
	for x := p.EdgeMargin; x < p.Width-p.EdgeMargin; x++ {
		if mathx.AbsInt(x-boundary) < p.EdgeMargin {
			continue
		}
		s := surface[x]
		if arid(x) {
			if roll(p.Seed, x, saltCactus) < ClampPermille(p.CactusPermille) {
				h := 2 + int(mathx.Hash2(p.Seed, x, saltHeight)%2)
				for i := 1; i <= h; i++ {
					g.SetTile(x, s-i, catalogs.TileCactus)
				}
			}
			continue
		}
		if x-lastTree < 4 {
			continue
		}
		if roll(p.Seed, x, saltTree) < ClampPermille(p.TreePermille) {
			plantTree(g, x, s, 4+int(mathx.Hash2(p.Seed, x, saltHeight)%3))
			lastTree = x
		}
	}
	return g
}

func roll(seed int64, x, salt int) int {
	return int(mathx.Hash2(seed, x, salt) % 1000)
}

func stratum(p Params, x, y, depth int, arid bool) catalogs.TileID {
	switch {
	case depth == 0:
		if arid {
			return catalogs.TileSand
		}
		return catalogs.TileGrass
	case depth <= p.ShallowDepth:
		if arid {
			return catalogs.TileSand
		}
		return catalogs.TileDirt
	case arid && depth <= p.ShallowDepth+3:
		return catalogs.TileSandstone
	}
	for _, r := range oreRules {
		if depth <= r.minDepth {
			continue
		}
		prob := ScalePermille(r.permille, p.OreScalePermille)
		if InCluster(p.Seed^int64(r.salt), x, y, r.cell, r.radius, prob) {
			return r.tile
		}
	}
	return catalogs.TileStone
}

func plantTree(g *grid.Grid, x, surface, height int) {
	top := surface - height
	for y := surface - 1; y >= top; y-- {
		g.SetTile(x, y, catalogs.TileLog)
	}
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy >= 0 {
				continue
			}
			if g.TileAt(x+dx, top+dy) == catalogs.TileAir {
				g.SetTile(x+dx, top+dy, catalogs.TileLeaves)
			}
		}
	}
	if g.TileAt(x, top-2) == catalogs.TileAir {
		g.SetTile(x, top-2, catalogs.TileLeaves)
	}
}

func ClampPermille(v int) int {
	if v < 0 {
		return 0
	}
	if v > 1000 {
		return 1000
	}
	return v
}

func ScalePermille(base uint64, scalePermille int) uint64 {
	if scalePermille <= 0 {
		scalePermille = 1000
	}
	scaled := (base*uint64(scalePermille) + 500) / 1000
	if scaled > 1000 {
		return 1000
	}
	return scaled
}

// InCluster reports whether (x,y) lies within radius of a pocket centre. One
// candidate centre exists per cell-sized square with probability probPermille.
func InCluster(seed int64, x, y, cell, radius int, probPermille uint64) bool {
	if cell <= 0 || radius <= 0 || probPermille == 0 {
		return false
	}
	gx := mathx.FloorDiv(x, cell)
	gy := mathx.FloorDiv(y, cell)
	r2 := radius * radius

	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			cgx := gx + dx
			cgy := gy + dy
			h := mathx.Hash2(seed, cgx, cgy)
			if h%1000 >= probPermille {
				continue
			}

			ox := int((h >> 10) % uint64(cell))
			oy := int((h >> 20) % uint64(cell))
			cx := cgx*cell + ox
			cy := cgy*cell + oy

			ddx := x - cx
			ddy := y - cy
			if ddx*ddx+ddy*ddy <= r2 {
				return true
			}
		}
	}
	return false
}
