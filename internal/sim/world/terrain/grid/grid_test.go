package grid

import (
	"testing"

	"acre.game/internal/sim/catalogs"
)

func TestSetTileAndBounds(t *testing.T) {
	g := New(4, 3)
	if g.TileAt(-1, 0) != catalogs.TileBoundary || g.TileAt(0, 3) != catalogs.TileBoundary {
		t.Fatalf("out of range must read as boundary")
	}
	if !g.IsSolid(4, 0) {
		t.Fatalf("out of range must be solid")
	}
	if _, ok := g.SetTile(4, 0, catalogs.TileStone); ok {
		t.Fatalf("out-of-range write accepted")
	}
	if _, ok := g.SetTile(0, 0, catalogs.TileBoundary); ok {
		t.Fatalf("boundary id accepted")
	}
	prev, ok := g.SetTile(1, 2, catalogs.TileStone)
	if !ok || prev != catalogs.TileAir {
		t.Fatalf("SetTile = %v,%v", prev, ok)
	}
	if g.TileAt(1, 2) != catalogs.TileStone || !g.IsSolid(1, 2) {
		t.Fatalf("stone not stored")
	}
}

func TestDigestTracksEdits(t *testing.T) {
	g := New(8, 8)
	a := g.Digest()
	g.SetTile(3, 3, catalogs.TileDirt)
	b := g.Digest()
	if a == b {
		t.Fatalf("digest unchanged after edit")
	}
	g.SetTile(3, 3, catalogs.TileAir)
	if g.Digest() != a {
		t.Fatalf("digest differs after revert")
	}
}

func TestCloneEqual(t *testing.T) {
	g := New(5, 5)
	g.SetTile(2, 4, catalogs.TileGrass)
	c := g.Clone()
	if !g.Equal(c) {
		t.Fatalf("clone differs")
	}
	c.SetTile(0, 0, catalogs.TileSand)
	if g.Equal(c) {
		t.Fatalf("clone shares storage")
	}
}

func TestFromCellsRejectsUnknown(t *testing.T) {
	cells := make([]catalogs.TileID, 4)
	cells[2] = catalogs.TileID(250)
	if _, err := FromCells(2, 2, cells); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := FromCells(2, 2, cells[:3]); err == nil {
		t.Fatalf("expected length error")
	}
}

func TestSurfaceRowAndNear(t *testing.T) {
	g := New(3, 6)
	g.SetTile(1, 4, catalogs.TileStone)
	g.SetTile(1, 1, catalogs.TileLog)
	if got := g.SurfaceRow(1); got != 4 {
		t.Fatalf("SurfaceRow = %d, want 4 (log is not solid)", got)
	}
	if got := g.TopRow(1); got != 1 {
		t.Fatalf("TopRow = %d, want 1", got)
	}
	if got := g.SurfaceRow(0); got != 6 {
		t.Fatalf("SurfaceRow empty column = %d", got)
	}
	g.SetTile(0, 0, catalogs.TileCraftingTable)
	if !g.Near(2, 2, 2, catalogs.TileCraftingTable) {
		t.Fatalf("table within radius not found")
	}
	if g.Near(2, 5, 2, catalogs.TileCraftingTable) {
		t.Fatalf("table outside radius found")
	}
}
