package kinematics

import (
	"math"
	"testing"

	"acre.game/internal/sim/catalogs"
	"acre.game/internal/sim/world/kernel/model"
	"acre.game/internal/sim/world/terrain/gen"
	"acre.game/internal/sim/world/terrain/grid"
)

const frame = 1.0 / 60

func floorWorld(w, h, floorRow int) *grid.Grid {
	g := grid.New(w, h)
	for x := 0; x < w; x++ {
		g.SetTile(x, floorRow, catalogs.TileStone)
	}
	return g
}

func settle(b *model.Body, p Params, g *grid.Grid, frames int) {
	for i := 0; i < frames; i++ {
		Step(b, Input{}, frame, p, g)
	}
}

func TestFallAndLand(t *testing.T) {
	p := DefaultParams()
	g := floorWorld(10, 10, 8)
	b := &model.Body{Pos: model.Vec2{X: 64, Y: 0}}
	settle(b, p, g, 120)
	if b.Pos.Y != 8*32-56 {
		t.Fatalf("y = %v, want %v", b.Pos.Y, 8*32-56)
	}
	if !b.Grounded || b.Vel.Y != 0 {
		t.Fatalf("grounded=%v vy=%v after landing", b.Grounded, b.Vel.Y)
	}
	settle(b, p, g, 30)
	if !b.Grounded || b.Pos.Y != 8*32-56 {
		t.Fatalf("resting body drifted: y=%v grounded=%v", b.Pos.Y, b.Grounded)
	}
}

func TestJumpNeedsGround(t *testing.T) {
	p := DefaultParams()
	g := floorWorld(10, 10, 8)
	b := &model.Body{Pos: model.Vec2{X: 64, Y: 0}}

	if Step(b, Input{Jump: true}, frame, p, g).Jumped {
		t.Fatalf("jumped in mid-air")
	}
	settle(b, p, g, 120)
	res := Step(b, Input{Jump: true}, frame, p, g)
	if !res.Jumped || b.Vel.Y >= 0 || b.Grounded {
		t.Fatalf("jump from ground: res=%+v vy=%v grounded=%v", res, b.Vel.Y, b.Grounded)
	}
	if Step(b, Input{Jump: true}, frame, p, g).Jumped {
		t.Fatalf("double jump")
	}
}

func TestHorizontalVelocityIsInputDriven(t *testing.T) {
	p := DefaultParams()
	g := floorWorld(40, 10, 8)
	b := &model.Body{Pos: model.Vec2{X: 320, Y: 200}, Grounded: true}
	cases := []struct {
		in   Input
		want float64
	}{
		{Input{Left: true}, -p.Speed},
		{Input{Right: true}, p.Speed},
		{Input{Left: true, Right: true}, 0},
		{Input{}, 0},
	}
	for _, tc := range cases {
		Step(b, tc.in, frame, p, g)
		if b.Vel.X != tc.want {
			t.Fatalf("input %+v: vx=%v, want %v", tc.in, b.Vel.X, tc.want)
		}
	}
}

func TestWallStopsHorizontalMove(t *testing.T) {
	p := DefaultParams()
	g := floorWorld(10, 10, 8)
	for y := 0; y < 8; y++ {
		g.SetTile(5, y, catalogs.TileStone)
	}
	b := &model.Body{Pos: model.Vec2{X: 64, Y: 200}, Grounded: true}
	var hit bool
	for i := 0; i < 120; i++ {
		if Step(b, Input{Right: true}, frame, p, g).HitWall {
			hit = true
		}
	}
	if !hit || b.Pos.X != 5*32-24 {
		t.Fatalf("x = %v hit=%v, want flush against column 5", b.Pos.X, hit)
	}
	for i := 0; i < 120; i++ {
		Step(b, Input{Left: true}, frame, p, g)
	}
	if b.Pos.X != 0 {
		t.Fatalf("x = %v, want stopped by world edge at 0", b.Pos.X)
	}
}

func TestCeilingStopsJump(t *testing.T) {
	p := DefaultParams()
	g := floorWorld(10, 10, 8)
	g.SetTile(2, 5, catalogs.TileStone)
	b := &model.Body{Pos: model.Vec2{X: 64, Y: 200}, Grounded: true}
	hit := false
	for i := 0; i < 30; i++ {
		if Step(b, Input{Jump: true}, frame, p, g).HitCeiling {
			hit = true
			break
		}
	}
	if !hit || b.Pos.Y != 6*32 || b.Vel.Y != 0 {
		t.Fatalf("ceiling: hit=%v y=%v vy=%v", hit, b.Pos.Y, b.Vel.Y)
	}
}

func TestFallSpeedAndFrameDeltaClamped(t *testing.T) {
	p := DefaultParams()
	g := grid.New(10, 100)
	b := &model.Body{Pos: model.Vec2{X: 64, Y: 0}, Vel: model.Vec2{Y: p.MaxFallSpeed - 10}}
	Step(b, Input{Right: true}, 1.0, p, g)
	if b.Vel.Y != p.MaxFallSpeed {
		t.Fatalf("vy = %v, want %v", b.Vel.Y, p.MaxFallSpeed)
	}
	if math.Abs(b.Pos.X-(64+p.Speed*p.MaxDelta)) > 1e-9 {
		t.Fatalf("x = %v, frame delta not clamped", b.Pos.X)
	}
	before := *b
	Step(b, Input{Right: true}, 0, p, g)
	if *b != before {
		t.Fatalf("zero dt changed the body")
	}
}

func TestCollisionContainment(t *testing.T) {
	p := DefaultParams()
	for seed := int64(1); seed <= 3; seed++ {
		g := gen.Generate(gen.DefaultParams(seed))
		col := g.Width() / 2
		b := &model.Body{Pos: model.Vec2{
			X: float64(col) * p.TileSize,
			Y: float64(g.SurfaceRow(col))*p.TileSize - p.Height,
		}}
		if Overlaps(b.Pos, p, g) {
			t.Fatalf("seed %d: start overlaps terrain", seed)
		}
		x := uint32(seed * 2654435761)
		dts := []float64{frame, 1.0 / 30, 0.25}
		maxX := float64(g.Width()) * p.TileSize
		for i := 0; i < 4000; i++ {
			x ^= x << 13
			x ^= x >> 17
			x ^= x << 5
			in := Input{Left: x&1 != 0, Right: x&2 != 0, Jump: x&4 != 0}
			if i%400 < 200 {
				in.Left, in.Right = false, true
			}
			Step(b, in, dts[(x>>3)%3], p, g)
			if Overlaps(b.Pos, p, g) {
				t.Fatalf("seed %d step %d: body at %v overlaps solid", seed, i, b.Pos)
			}
			if b.Pos.X < 0 || b.Pos.X+p.Width > maxX {
				t.Fatalf("seed %d step %d: x=%v outside world", seed, i, b.Pos.X)
			}
		}
	}
}

func TestDepenetrateLiftsBody(t *testing.T) {
	p := DefaultParams()
	g := floorWorld(10, 10, 8)
	b := &model.Body{Pos: model.Vec2{X: 64, Y: 200}, Grounded: true}
	g.SetTile(2, 7, catalogs.TileDirt)
	if !Depenetrate(b, p, g, 8) {
		t.Fatalf("expected lift")
	}
	if b.Pos.Y != 7*32-56 || Overlaps(b.Pos, p, g) {
		t.Fatalf("y = %v after lift", b.Pos.Y)
	}
	if Depenetrate(b, p, g, 8) {
		t.Fatalf("free body moved")
	}
}

func TestContactDamage(t *testing.T) {
	p := DefaultParams()
	g := floorWorld(10, 10, 8)
	pos := model.Vec2{X: 64, Y: 200}
	if ContactDamage(pos, p, g) != 0 {
		t.Fatalf("damage without cactus")
	}
	g.SetTile(2, 7, catalogs.TileCactus)
	if ContactDamage(pos, p, g) != 1 {
		t.Fatalf("cactus contact not reported")
	}
	if !OverlapsCell(pos, p, 2, 7) || OverlapsCell(pos, p, 3, 7) {
		t.Fatalf("OverlapsCell wrong")
	}
}

// A body falling diagonally onto the corner of a block hits it on the
// horizontal pass and keeps falling beside it instead of landing on top.
func TestInsideCornerResolvesVerticalFirst(t *testing.T) {
	p := DefaultParams()
	g := grid.New(10, 10)
	g.SetTile(2, 4, catalogs.TileStone)
	b := &model.Body{
		Pos: model.Vec2{X: 2*32 - p.Width, Y: 4*32 - p.Height},
		Vel: model.Vec2{Y: 300},
	}
	res := Step(b, Input{Right: true}, frame, p, g)
	if !res.HitWall || b.Grounded {
		t.Fatalf("res=%+v grounded=%v, want wall hit while airborne", res, b.Grounded)
	}
	if b.Pos.X != 2*32-p.Width {
		t.Fatalf("x = %v, want flush against block at %v", b.Pos.X, 2*32-p.Width)
	}
	if b.Pos.Y <= 4*32-p.Height {
		t.Fatalf("y = %v, body should have kept falling", b.Pos.Y)
	}
}

func TestTinyOvershootSnapsToBoundary(t *testing.T) {
	p := DefaultParams()
	p.Gravity = 0
	g := floorWorld(300, 10, 8)
	maxX := 300 * p.TileSize

	b := &model.Body{Pos: model.Vec2{X: maxX - p.Width - 1, Y: 8*32 - p.Height}}
	res := Step(b, Input{Right: true}, (1+1e-9)/p.Speed, p, g)
	if !res.HitWall || b.Pos.X != maxX-p.Width {
		t.Fatalf("right edge: x=%v hit=%v, want %v", b.Pos.X, res.HitWall, maxX-p.Width)
	}

	b = &model.Body{Pos: model.Vec2{X: 64, Y: 8*32 - p.Height - 1}, Vel: model.Vec2{Y: (1 + 1e-9) / frame}}
	Step(b, Input{}, frame, p, g)
	if !b.Grounded || b.Pos.Y != 8*32-p.Height {
		t.Fatalf("floor: y=%v grounded=%v, want %v", b.Pos.Y, b.Grounded, 8*32-p.Height)
	}
}
