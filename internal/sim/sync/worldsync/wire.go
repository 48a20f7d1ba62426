package worldsync

import (
	"fmt"
	"strconv"
	"strings"

	"acre.game/internal/persistence/docstore"
	"acre.game/internal/sim/catalogs"
	"acre.game/internal/sim/world/terrain/grid"
)

// ToWire encodes the non-air cells of g as {"<col>": {"<row>": id}}.
// Columns holding only air are omitted.
func ToWire(g *grid.Grid) map[string]any {
	out := map[string]any{}
	for x := 0; x < g.Width(); x++ {
		var col map[string]any
		for y := 0; y < g.Height(); y++ {
			id := g.TileAt(x, y)
			if id == catalogs.TileAir {
				continue
			}
			if col == nil {
				col = map[string]any{}
			}
			col[strconv.Itoa(y)] = int(id)
		}
		if col != nil {
			out[strconv.Itoa(x)] = col
		}
	}
	return out
}

// CellField is the dotted document field holding cell (x,y).
func CellField(x, y int) string {
	return "tiles." + strconv.Itoa(x) + "." + strconv.Itoa(y)
}

// ParseCellField is the inverse of CellField.
func ParseCellField(field string) (x, y int, ok bool) {
	parts := strings.Split(field, ".")
	if len(parts) != 3 || parts[0] != "tiles" {
		return 0, 0, false
	}
	x, errX := strconv.Atoi(parts[1])
	y, errY := strconv.Atoi(parts[2])
	if errX != nil || errY != nil {
		return 0, 0, false
	}
	return x, y, true
}

// FromWire rebuilds a dense width×height grid. Omitted cells are air.
func FromWire(raw any, width, height int) (*grid.Grid, error) {
	g, _, err := decodeWire(raw, width, height)
	return g, err
}

// decodeWire also reports how many cells were skipped for being outside the
// grid, unparsable, or holding an unregistered id.
func decodeWire(raw any, width, height int) (*grid.Grid, int, error) {
	if width <= 0 || height <= 0 {
		return nil, 0, fmt.Errorf("worldsync: bad dimensions %dx%d", width, height)
	}
	g := grid.New(width, height)
	if raw == nil {
		return g, 0, nil
	}
	cols, ok := docstore.AsMap(raw)
	if !ok {
		return nil, 0, fmt.Errorf("worldsync: tiles is %T, want object", raw)
	}
	skipped := 0
	for ck, cv := range cols {
		x, err := strconv.Atoi(ck)
		rows, ok := docstore.AsMap(cv)
		if err != nil || !ok {
			skipped++
			continue
		}
		for rk, rv := range rows {
			y, err := strconv.Atoi(rk)
			n, ok := docstore.AsInt(rv)
			if err != nil || !ok || n < 0 || n > 0xFF {
				skipped++
				continue
			}
			if _, ok := g.SetTile(x, y, catalogs.TileID(n)); !ok {
				skipped++
			}
		}
	}
	return g, skipped, nil
}
