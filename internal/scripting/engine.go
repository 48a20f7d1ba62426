package scripting

import (
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"acre.game/internal/sim/catalogs"
	"acre.game/internal/sim/session"
	"acre.game/internal/sim/world/feature/movement/kinematics"
)

var ErrNoHandler = errors.New("scripting: script defines no on_tick")

// Terrain is the read-only world view exposed to scripts.
type Terrain interface {
	TileAt(x, y int) catalogs.TileID
	SurfaceRow(x int) int
}

// Engine wraps a single gopher-lua VM that drives a bot's input.
// Single-goroutine access only (frame loop).
type Engine struct {
	vm      *lua.LState
	log     *zap.Logger
	terrain Terrain
}

// State is what a script sees each frame.
type State struct {
	Frame     int
	X, Y      float64
	CellX     int
	CellY     int
	Grounded  bool
	Health    int
	Selected  int
	Peers     int
	Paused    bool
	Inventory map[catalogs.ItemID]int
}

// Action is a script's answer for one frame.
type Action struct {
	Input  session.Input
	Craft  catalogs.ItemID
	Select *int
}

func NewEngine(log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log.Named("lua")}
	vm.SetGlobal("tile_at", vm.NewFunction(e.luaTileAt))
	vm.SetGlobal("surface_row", vm.NewFunction(e.luaSurfaceRow))
	vm.SetGlobal("log", vm.NewFunction(e.luaLog))
	return e
}

func (e *Engine) LoadFile(path string) error {
	if err := e.vm.DoFile(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	e.log.Debug("loaded lua script", zap.String("file", path))
	return nil
}

func (e *Engine) LoadString(src string) error {
	if err := e.vm.DoString(src); err != nil {
		return fmt.Errorf("load script: %w", err)
	}
	return nil
}

// SetTerrain points tile_at and surface_row at the current world.
func (e *Engine) SetTerrain(t Terrain) { e.terrain = t }

func (e *Engine) luaTileAt(L *lua.LState) int {
	x, y := L.CheckInt(1), L.CheckInt(2)
	if e.terrain == nil {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(e.terrain.TileAt(x, y).String()))
	return 1
}

func (e *Engine) luaSurfaceRow(L *lua.LState) int {
	x := L.CheckInt(1)
	if e.terrain == nil {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(e.terrain.SurfaceRow(x)))
	return 1
}

func (e *Engine) luaLog(L *lua.LState) int {
	e.log.Info(L.CheckString(1))
	return 0
}

// OnTick calls the script's on_tick(state) and decodes the returned table:
// left, right, jump (booleans), mine_x/mine_y and place_x/place_y (cells),
// craft (item name) and select (0-based hotbar slot).
func (e *Engine) OnTick(s State) (Action, error) {
	fn := e.vm.GetGlobal("on_tick")
	if fn == lua.LNil {
		return Action{}, ErrNoHandler
	}

	t := e.vm.NewTable()
	t.RawSetString("frame", lua.LNumber(s.Frame))
	t.RawSetString("x", lua.LNumber(s.X))
	t.RawSetString("y", lua.LNumber(s.Y))
	t.RawSetString("cell_x", lua.LNumber(s.CellX))
	t.RawSetString("cell_y", lua.LNumber(s.CellY))
	t.RawSetString("grounded", lua.LBool(s.Grounded))
	t.RawSetString("health", lua.LNumber(s.Health))
	t.RawSetString("selected", lua.LNumber(s.Selected))
	t.RawSetString("peers", lua.LNumber(s.Peers))
	t.RawSetString("paused", lua.LBool(s.Paused))

	inv := e.vm.NewTable()
	for id, n := range s.Inventory {
		inv.RawSetString(id.String(), lua.LNumber(n))
	}
	t.RawSetString("inventory", inv)

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua on_tick error", zap.Error(err))
		return Action{}, fmt.Errorf("on_tick: %w", err)
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	if result == lua.LNil {
		return Action{}, nil
	}
	rt, ok := result.(*lua.LTable)
	if !ok {
		e.log.Error("lua on_tick returned non-table", zap.String("type", result.Type().String()))
		return Action{}, fmt.Errorf("on_tick returned %s", result.Type())
	}

	a := Action{
		Input: session.Input{
			Move: kinematics.Input{
				Left:  rt.RawGetString("left") == lua.LTrue,
				Right: rt.RawGetString("right") == lua.LTrue,
				Jump:  rt.RawGetString("jump") == lua.LTrue,
			},
			Mine:  cellField(rt, "mine_x", "mine_y"),
			Place: cellField(rt, "place_x", "place_y"),
		},
	}
	if name, ok := rt.RawGetString("craft").(lua.LString); ok {
		id, known := catalogs.ItemByName(string(name))
		if !known {
			e.log.Warn("script asked for unknown item", zap.String("item", string(name)))
		}
		a.Craft = id
	}
	if n, ok := rt.RawGetString("select").(lua.LNumber); ok {
		i := int(n)
		a.Select = &i
	}
	return a, nil
}

func cellField(t *lua.LTable, kx, ky string) *session.Cell {
	x, okx := t.RawGetString(kx).(lua.LNumber)
	y, oky := t.RawGetString(ky).(lua.LNumber)
	if !okx || !oky {
		return nil
	}
	return &session.Cell{X: int(x), Y: int(y)}
}

// Close releases the VM.
func (e *Engine) Close() {
	e.vm.Close()
}
