package mining

import (
	"testing"

	"acre.game/internal/sim/catalogs"
)

func TestToolFamilyForTile(t *testing.T) {
	cases := map[catalogs.TileID]catalogs.ToolFamily{
		catalogs.TileDirt:       catalogs.ToolFamilyShovel,
		catalogs.TileLog:        catalogs.ToolFamilyAxe,
		catalogs.TileStone:      catalogs.ToolFamilyPickaxe,
		catalogs.TileDiamondOre: catalogs.ToolFamilyPickaxe,
		catalogs.TileLeaves:     catalogs.ToolFamilyNone,
	}
	for id, want := range cases {
		if got := ToolFamilyForTile(id); got != want {
			t.Fatalf("%s: family %v, want %v", id, got, want)
		}
	}
}

func TestBestToolPower(t *testing.T) {
	inv := map[catalogs.ItemID]int{
		catalogs.ItemWoodPickaxe:  1,
		catalogs.ItemStonePickaxe: 1,
		catalogs.ItemStoneAxe:     1,
		catalogs.ItemIronPickaxe:  0,
	}
	if got := BestToolPower(inv, catalogs.ToolFamilyPickaxe, 1); got != 3 {
		t.Fatalf("pickaxe power = %v, want 3", got)
	}
	if got := BestToolPower(inv, catalogs.ToolFamilyAxe, 1); got != 3 {
		t.Fatalf("axe power = %v, want 3", got)
	}
	if got := BestToolPower(inv, catalogs.ToolFamilyShovel, 1); got != 1 {
		t.Fatalf("shovel power = %v, want hand", got)
	}
}

func TestBreakTimeAndProgress(t *testing.T) {
	need := BreakTime(catalogs.TileStone, 3)
	if need != 0.5 {
		t.Fatalf("stone with stone pickaxe = %v, want 0.5", need)
	}
	if BreakTime(catalogs.TileAir, 1) != 0 {
		t.Fatalf("air should break instantly")
	}

	var p Progress
	if p.Advance(4, 5, 0.25, need) {
		t.Fatalf("done too early")
	}
	if p.Fraction(need) != 0.5 {
		t.Fatalf("fraction = %v", p.Fraction(need))
	}
	if p.Advance(4, 6, 0.25, need) {
		t.Fatalf("switching cell kept progress")
	}
	if !p.Advance(4, 6, 0.25, need) {
		t.Fatalf("not done after full time")
	}
	p.Reset()
	if p.Fraction(need) != 0 {
		t.Fatalf("reset kept progress")
	}
}
