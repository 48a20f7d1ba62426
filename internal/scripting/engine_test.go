package scripting

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"acre.game/internal/sim/catalogs"
	"acre.game/internal/sim/world/terrain/grid"
)

func TestOnTickDecodesAction(t *testing.T) {
	e := NewEngine(nil)
	defer e.Close()
	err := e.LoadString(`
function on_tick(s)
  if s.inventory.wood ~= nil and s.inventory.wood > 0 then
    return { craft = "wood_planks", select = 2 }
  end
  return { right = true, jump = s.grounded, mine_x = s.cell_x + 1, mine_y = s.cell_y }
end
`)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	a, err := e.OnTick(State{CellX: 10, CellY: 4, Grounded: true})
	if err != nil {
		t.Fatalf("on_tick: %v", err)
	}
	if !a.Input.Move.Right || a.Input.Move.Left || !a.Input.Move.Jump {
		t.Fatalf("move = %+v", a.Input.Move)
	}
	if a.Input.Mine == nil || a.Input.Mine.X != 11 || a.Input.Mine.Y != 4 || a.Input.Place != nil {
		t.Fatalf("cells = %+v %+v", a.Input.Mine, a.Input.Place)
	}

	a, err = e.OnTick(State{Inventory: map[catalogs.ItemID]int{catalogs.ItemWood: 1}})
	if err != nil {
		t.Fatalf("on_tick: %v", err)
	}
	if a.Craft != catalogs.ItemWoodPlanks || a.Select == nil || *a.Select != 2 {
		t.Fatalf("action = %+v", a)
	}
}

func TestOnTickErrors(t *testing.T) {
	e := NewEngine(nil)
	defer e.Close()
	if _, err := e.OnTick(State{}); !errors.Is(err, ErrNoHandler) {
		t.Fatalf("missing handler: %v", err)
	}
	if err := e.LoadString(`function on_tick(s) return 7 end`); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := e.OnTick(State{}); err == nil {
		t.Fatalf("expected error for non-table result")
	}
	if err := e.LoadString(`function on_tick(s) error("boom") end`); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := e.OnTick(State{}); err == nil {
		t.Fatalf("expected runtime error")
	}
	if err := e.LoadString(`function on_tick(s) return nil end`); err != nil {
		t.Fatalf("load: %v", err)
	}
	if a, err := e.OnTick(State{}); err != nil || a.Input.Mine != nil {
		t.Fatalf("nil result: %+v %v", a, err)
	}
}

func TestTerrainBindings(t *testing.T) {
	g := grid.New(4, 4)
	g.SetTile(1, 2, catalogs.TileStone)

	e := NewEngine(nil)
	defer e.Close()
	e.SetTerrain(g)
	path := filepath.Join(t.TempDir(), "bot.lua")
	src := `
function on_tick(s)
  if tile_at(1, 2) == "stone" and surface_row(1) == 2 then
    return { left = true }
  end
  return {}
end
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := e.LoadFile(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	a, err := e.OnTick(State{})
	if err != nil || !a.Input.Move.Left {
		t.Fatalf("action = %+v err = %v", a, err)
	}
}

func TestLoadSyntaxError(t *testing.T) {
	e := NewEngine(nil)
	defer e.Close()
	if err := e.LoadString(`function on_tick(`); err == nil {
		t.Fatalf("expected syntax error")
	}
}
