package worldsync

import (
	"errors"
	"testing"

	"acre.game/internal/persistence/docstore"
	"acre.game/internal/sim/catalogs"
	"acre.game/internal/sim/world/terrain/gen"
	"acre.game/internal/sim/world/terrain/grid"
)

type fakeWriter struct {
	paths  []string
	fields []map[string]any
	full   bool
}

func (f *fakeWriter) Update(path string, fields map[string]any) bool {
	if f.full {
		return false
	}
	f.paths = append(f.paths, path)
	f.fields = append(f.fields, fields)
	return true
}

func TestTileRoundTrip(t *testing.T) {
	for seed := int64(0); seed < 5; seed++ {
		p := gen.DefaultParams(seed)
		g := gen.Generate(p)
		wire := ToWire(g)

		back, err := FromWire(wire, g.Width(), g.Height())
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		if !back.Equal(g) {
			t.Fatalf("seed %d: direct round trip differs", seed)
		}

		// Same check after the JSON normalisation every store applies.
		norm, err := docstore.Normalize(map[string]any{"tiles": wire})
		if err != nil {
			t.Fatalf("normalize: %v", err)
		}
		back, err = FromWire(norm["tiles"], g.Width(), g.Height())
		if err != nil || !back.Equal(g) {
			t.Fatalf("seed %d: normalized round trip differs (err=%v)", seed, err)
		}
	}
}

func TestToWireIsSparse(t *testing.T) {
	g := grid.New(5, 4)
	g.SetTile(3, 2, catalogs.TileStone)
	wire := ToWire(g)
	if len(wire) != 1 {
		t.Fatalf("wire = %v, want one column", wire)
	}
	col, ok := wire["3"].(map[string]any)
	if !ok || len(col) != 1 || col["2"] != int(catalogs.TileStone) {
		t.Fatalf("column 3 = %v", wire["3"])
	}
	empty, err := FromWire(ToWire(grid.New(5, 4)), 5, 4)
	if err != nil || empty.Count(catalogs.TileAir) != 20 {
		t.Fatalf("empty grid round trip: %v", err)
	}
}

func TestFromWireSkipsBadCells(t *testing.T) {
	raw := map[string]any{
		"0":  map[string]any{"0": int8(3), "1": uint16(1)},
		"1":  map[string]any{"0": 1.5, "1": "x", "9": 2},
		"9":  map[string]any{"0": 2},
		"ab": map[string]any{"0": 2},
		"2":  map[string]any{"0": 200, "1": float64(catalogs.TileSand)},
		"3":  "not a column",
	}
	g, skipped, err := decodeWire(raw, 4, 4)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if skipped != 7 {
		t.Fatalf("skipped = %d, want 7", skipped)
	}
	if g.TileAt(0, 0) != catalogs.TileStone || g.TileAt(0, 1) != catalogs.TileGrass || g.TileAt(2, 1) != catalogs.TileSand {
		t.Fatalf("valid cells lost")
	}
	if _, err := FromWire("nope", 4, 4); err == nil {
		t.Fatalf("expected error for non-object tiles")
	}
	if _, err := FromWire(nil, 0, 4); err == nil {
		t.Fatalf("expected error for bad dimensions")
	}
}

func TestApplyRemoteSnapshot(t *testing.T) {
	g := gen.Generate(gen.DefaultParams(3))
	a := NewAdapter("ABC234", g.Clone(), nil, nil)
	redraws := 0
	a.OnChange(func(*grid.Grid) { redraws++ })

	doc := WorldDoc(Meta{Code: "ABC234", Seed: 3}, g)
	changed, err := a.ApplyRemoteSnapshot(doc)
	if err != nil || changed || redraws != 0 {
		t.Fatalf("echo: changed=%v err=%v redraws=%d", changed, err, redraws)
	}

	edited := g.Clone()
	edited.SetTile(10, 10, catalogs.TileTorch)
	changed, err = a.ApplyRemoteSnapshot(WorldDoc(Meta{Code: "ABC234"}, edited))
	if err != nil || !changed || redraws != 1 {
		t.Fatalf("edit: changed=%v err=%v redraws=%d", changed, err, redraws)
	}
	if a.Grid().TileAt(10, 10) != catalogs.TileTorch {
		t.Fatalf("grid not replaced")
	}

	small := WorldDoc(Meta{Code: "ABC234"}, grid.New(10, 10))
	if _, err := a.ApplyRemoteSnapshot(small); err == nil {
		t.Fatalf("expected dimension mismatch error")
	}
}

func TestApplyEvent(t *testing.T) {
	a := NewAdapter("ABC234", grid.New(4, 4), nil, nil)
	if _, err := a.ApplyEvent(docstore.Event{Path: docstore.WorldPath("ABC234"), Deleted: true}); !errors.Is(err, ErrWorldDeleted) {
		t.Fatalf("err = %v, want ErrWorldDeleted", err)
	}
	changed, err := a.ApplyEvent(docstore.Event{Path: docstore.WorldPath("OTHER2"), Deleted: true})
	if changed || err != nil {
		t.Fatalf("foreign path handled: %v %v", changed, err)
	}
}

func TestBreakAndPlacePushSingleCell(t *testing.T) {
	g := grid.New(4, 4)
	g.SetTile(1, 3, catalogs.TileDirt)
	w := &fakeWriter{}
	a := NewAdapter("ABC234", g, w, nil)

	if _, ok := a.BreakTile(0, 0); ok {
		t.Fatalf("broke air")
	}
	if _, ok := a.BreakTile(-1, 0); ok {
		t.Fatalf("broke outside the grid")
	}
	prev, ok := a.BreakTile(1, 3)
	if !ok || prev != catalogs.TileDirt || a.Grid().TileAt(1, 3) != catalogs.TileAir {
		t.Fatalf("break: prev=%s ok=%v", prev, ok)
	}
	if !a.PlaceTile(1, 3, catalogs.TilePlanks) {
		t.Fatalf("place refused")
	}
	if a.PlaceTile(1, 3, catalogs.TileStone) {
		t.Fatalf("placed into occupied cell")
	}
	if a.PlaceTile(9, 9, catalogs.TileStone) || a.PlaceTile(0, 0, catalogs.TileID(99)) {
		t.Fatalf("placed out of range or unknown id")
	}

	if len(w.fields) != 2 {
		t.Fatalf("pushed %d edits, want 2", len(w.fields))
	}
	for i, want := range []int{0, int(catalogs.TilePlanks)} {
		if w.paths[i] != "worlds/ABC234" || len(w.fields[i]) != 1 || w.fields[i]["tiles.1.3"] != want {
			t.Fatalf("edit %d = %s %v", i, w.paths[i], w.fields[i])
		}
	}

	w.full = true
	if _, ok := a.BreakTile(1, 3); !ok {
		t.Fatalf("local break must succeed when the queue is full")
	}
}

func TestGridFromDoc(t *testing.T) {
	g := gen.Generate(gen.DefaultParams(11))
	doc, err := docstore.Normalize(WorldDoc(Meta{Code: "XYZ789", Seed: 11, Host: "h"}, g))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	back, meta, err := GridFromDoc(doc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !back.Equal(g) || meta.Seed != 11 || meta.Code != "XYZ789" || meta.CatalogDigest != catalogs.Digest() {
		t.Fatalf("meta = %+v", meta)
	}
	if _, _, err := GridFromDoc(docstore.Document{"code": "XYZ789"}); err == nil {
		t.Fatalf("expected error without dimensions")
	}
}

func TestParseCellField(t *testing.T) {
	x, y, ok := ParseCellField(CellField(150, 42))
	if !ok || x != 150 || y != 42 {
		t.Fatalf("got %d,%d,%v", x, y, ok)
	}
	for _, bad := range []string{"tiles.1", "seed", "tiles.a.2", "cells.1.2", "tiles.1.2.3"} {
		if _, _, ok := ParseCellField(bad); ok {
			t.Fatalf("accepted %q", bad)
		}
	}
}
