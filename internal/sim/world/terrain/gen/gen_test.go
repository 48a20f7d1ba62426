package gen

import (
	"testing"

	"acre.game/internal/sim/catalogs"
)

func TestGenerateDeterministic(t *testing.T) {
	a := Generate(DefaultParams(42))
	b := Generate(DefaultParams(42))
	if !a.Equal(b) {
		t.Fatalf("same seed produced different worlds")
	}
	c := Generate(DefaultParams(43))
	if a.Equal(c) {
		t.Fatalf("different seeds produced identical worlds")
	}
}

func TestGenerateDimensionsAndRegisteredCells(t *testing.T) {
	p := DefaultParams(7)
	g := Generate(p)
	if g.Width() != 300 || g.Height() != 150 {
		t.Fatalf("dims = %dx%d", g.Width(), g.Height())
	}
	for _, id := range g.Cells() {
		if !catalogs.Registered(id) {
			t.Fatalf("unregistered tile %d", id)
		}
	}
	for x := 0; x < g.Width(); x++ {
		if g.TileAt(x, 0) != catalogs.TileAir {
			t.Fatalf("column %d has terrain in the top row", x)
		}
		if g.TileAt(x, g.Height()-1) == catalogs.TileAir {
			t.Fatalf("column %d open at the bottom", x)
		}
	}
}

func TestAridBandOnOneEdge(t *testing.T) {
	sawLeft, sawRight := false, false
	for seed := int64(0); seed < 40; seed++ {
		p := DefaultParams(seed)
		lo, hi := AridBand(p)
		if hi-lo != 90 {
			t.Fatalf("seed %d: band width %d", seed, hi-lo)
		}
		switch {
		case lo == 0:
			sawLeft = true
		case hi == p.Width:
			sawRight = true
		default:
			t.Fatalf("seed %d: band [%d,%d) not on an edge", seed, lo, hi)
		}
		g := Generate(p)
		for x := 0; x < p.Width; x++ {
			top := g.TileAt(x, SurfaceHeight(p, x))
			inArid := x >= lo && x < hi
			if inArid && top != catalogs.TileSand {
				t.Fatalf("seed %d col %d: arid surface %s", seed, x, top)
			}
			if !inArid && top != catalogs.TileGrass {
				t.Fatalf("seed %d col %d: temperate surface %s", seed, x, top)
			}
		}
	}
	if !sawLeft || !sawRight {
		t.Fatalf("coin flip never varied: left=%v right=%v", sawLeft, sawRight)
	}
}

func TestDecorationsRespectBiomeAndMargins(t *testing.T) {
	trees, cacti := 0, 0
	for seed := int64(100); seed < 120; seed++ {
		p := DefaultParams(seed)
		g := Generate(p)
		lo, hi := AridBand(p)
		boundary := lo
		if lo == 0 {
			boundary = hi
		}
		for x := 0; x < p.Width; x++ {
			for y := 0; y < p.Height; y++ {
				id := g.TileAt(x, y)
				if id != catalogs.TileLog && id != catalogs.TileCactus {
					continue
				}
				if x < p.EdgeMargin || x >= p.Width-p.EdgeMargin {
					t.Fatalf("seed %d: %s at edge column %d", seed, id, x)
				}
				d := x - boundary
				if d < 0 {
					d = -d
				}
				if d < p.EdgeMargin {
					t.Fatalf("seed %d: %s %d columns from biome boundary", seed, id, d)
				}
				inArid := x >= lo && x < hi
				if id == catalogs.TileLog && inArid {
					t.Fatalf("seed %d: tree in arid band at %d", seed, x)
				}
				if id == catalogs.TileCactus && !inArid {
					t.Fatalf("seed %d: cactus outside arid band at %d", seed, x)
				}
				if id == catalogs.TileLog {
					trees++
				} else {
					cacti++
				}
			}
		}
	}
	if trees == 0 || cacti == 0 {
		t.Fatalf("decorations missing: logs=%d cacti=%d", trees, cacti)
	}
}

func TestOresUnlockWithDepth(t *testing.T) {
	minDepth := map[catalogs.TileID]int{}
	for _, r := range oreRules {
		minDepth[r.tile] = r.minDepth
	}
	found := map[catalogs.TileID]int{}
	for seed := int64(0); seed < 10; seed++ {
		p := DefaultParams(seed)
		g := Generate(p)
		for x := 0; x < p.Width; x++ {
			s := SurfaceHeight(p, x)
			for y := s; y < p.Height; y++ {
				id := g.TileAt(x, y)
				md, ok := minDepth[id]
				if !ok {
					continue
				}
				if y-s <= md {
					t.Fatalf("seed %d: %s at depth %d (min %d)", seed, id, y-s, md)
				}
				found[id]++
			}
		}
	}
	for id := range minDepth {
		if found[id] == 0 {
			t.Fatalf("no %s generated across seeds", id)
		}
	}
	if found[catalogs.TileDiamondOre] >= found[catalogs.TileCoalOre] {
		t.Fatalf("diamond (%d) not rarer than coal (%d)", found[catalogs.TileDiamondOre], found[catalogs.TileCoalOre])
	}
}

func TestScalePermille(t *testing.T) {
	if ScalePermille(100, 0) != 100 || ScalePermille(100, 2000) != 200 || ScalePermille(900, 2000) != 1000 {
		t.Fatalf("ScalePermille wrong")
	}
	if ClampPermille(-1) != 0 || ClampPermille(1500) != 1000 {
		t.Fatalf("ClampPermille wrong")
	}
}
