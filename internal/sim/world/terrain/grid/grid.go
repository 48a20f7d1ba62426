package grid

import (
	"crypto/sha256"
	"fmt"

	"acre.game/internal/sim/catalogs"
)

// Grid is a fixed-size row-major tile matrix. Row 0 is the top of the world.
type Grid struct {
	width  int
	height int
	cells  []catalogs.TileID

	dirty bool
	hash  [32]byte
}

func New(width, height int) *Grid {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Grid{
		width:  width,
		height: height,
		cells:  make([]catalogs.TileID, width*height),
		dirty:  true,
	}
}

// FromCells adopts a row-major cell slice. Unregistered ids are rejected.
func FromCells(width, height int, cells []catalogs.TileID) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("grid: bad dimensions %dx%d", width, height)
	}
	if len(cells) != width*height {
		return nil, fmt.Errorf("grid: cells length mismatch: got %d want %d", len(cells), width*height)
	}
	g := New(width, height)
	for i, id := range cells {
		if !catalogs.Registered(id) {
			return nil, fmt.Errorf("grid: unregistered tile %d at index %d", id, i)
		}
		g.cells[i] = id
	}
	return g, nil
}

func (g *Grid) Width() int  { return g.width }
func (g *Grid) Height() int { return g.height }

func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.width && y < g.height
}

func (g *Grid) index(x, y int) int {
	return x + y*g.width
}

// TileAt returns TileBoundary outside the grid.
func (g *Grid) TileAt(x, y int) catalogs.TileID {
	if !g.InBounds(x, y) {
		return catalogs.TileBoundary
	}
	return g.cells[g.index(x, y)]
}

// SetTile stores id and reports the previous value. Out-of-range positions
// and unregistered ids leave the grid untouched.
func (g *Grid) SetTile(x, y int, id catalogs.TileID) (catalogs.TileID, bool) {
	if !g.InBounds(x, y) || !catalogs.Registered(id) {
		return catalogs.TileAir, false
	}
	i := g.index(x, y)
	prev := g.cells[i]
	if prev != id {
		g.cells[i] = id
		g.dirty = true
	}
	return prev, true
}

func (g *Grid) IsSolid(x, y int) bool {
	return catalogs.Solid(g.TileAt(x, y))
}

// Cells returns a copy in row-major order.
func (g *Grid) Cells() []catalogs.TileID {
	out := make([]catalogs.TileID, len(g.cells))
	copy(out, g.cells)
	return out
}

func (g *Grid) Clone() *Grid {
	c := &Grid{width: g.width, height: g.height, cells: g.Cells(), dirty: g.dirty, hash: g.hash}
	return c
}

func (g *Grid) Equal(o *Grid) bool {
	if g == nil || o == nil {
		return g == o
	}
	if g.width != o.width || g.height != o.height {
		return false
	}
	for i := range g.cells {
		if g.cells[i] != o.cells[i] {
			return false
		}
	}
	return true
}

func (g *Grid) Digest() [32]byte {
	if g.dirty || g.hash == ([32]byte{}) {
		h := sha256.New()
		h.Write([]byte{byte(g.width >> 8), byte(g.width), byte(g.height >> 8), byte(g.height)})
		buf := make([]byte, len(g.cells))
		for i, v := range g.cells {
			buf[i] = byte(v)
		}
		h.Write(buf)
		copy(g.hash[:], h.Sum(nil))
		g.dirty = false
	}
	return g.hash
}

// SurfaceRow is the first solid row in column x, or Height when the column is
// open all the way down.
func (g *Grid) SurfaceRow(x int) int {
	if x < 0 || x >= g.width {
		return g.height
	}
	for y := 0; y < g.height; y++ {
		if catalogs.Solid(g.cells[g.index(x, y)]) {
			return y
		}
	}
	return g.height
}

// TopRow is the first non-air row in column x, or Height when the column is
// empty.
func (g *Grid) TopRow(x int) int {
	if x < 0 || x >= g.width {
		return g.height
	}
	for y := 0; y < g.height; y++ {
		if g.cells[g.index(x, y)] != catalogs.TileAir {
			return y
		}
	}
	return g.height
}

// Near reports whether id occurs within a square of the given radius.
func (g *Grid) Near(cx, cy, radius int, id catalogs.TileID) bool {
	for y := cy - radius; y <= cy+radius; y++ {
		for x := cx - radius; x <= cx+radius; x++ {
			if g.InBounds(x, y) && g.cells[g.index(x, y)] == id {
				return true
			}
		}
	}
	return false
}

// Count tallies cells holding id.
func (g *Grid) Count(id catalogs.TileID) int {
	n := 0
	for _, v := range g.cells {
		if v == id {
			n++
		}
	}
	return n
}
