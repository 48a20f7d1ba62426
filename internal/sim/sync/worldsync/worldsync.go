// Package worldsync keeps the local tile grid and the shared world document
// in step. It is the only writer of the grid.
package worldsync

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"acre.game/internal/persistence/docstore"
	"acre.game/internal/sim/catalogs"
	"acre.game/internal/sim/world/terrain/grid"
)

// ErrWorldDeleted signals that the world document no longer exists.
var ErrWorldDeleted = errors.New("worldsync: world document deleted")

// Meta is the non-tile part of a world document.
type Meta struct {
	Code          string `json:"code"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Seed          int64  `json:"seed"`
	Host          string `json:"host,omitempty"`
	CreatedAt     int64  `json:"created_at,omitempty"`
	CatalogDigest string `json:"catalog_digest,omitempty"`
}

func WorldDoc(meta Meta, g *grid.Grid) docstore.Document {
	meta.Width, meta.Height = g.Width(), g.Height()
	if meta.CatalogDigest == "" {
		meta.CatalogDigest = catalogs.Digest()
	}
	if meta.CreatedAt == 0 {
		meta.CreatedAt = time.Now().UnixMilli()
	}
	return docstore.Document{
		"code":           meta.Code,
		"width":          meta.Width,
		"height":         meta.Height,
		"seed":           meta.Seed,
		"host":           meta.Host,
		"created_at":     meta.CreatedAt,
		"catalog_digest": meta.CatalogDigest,
		"tiles":          ToWire(g),
	}
}

func ParseMeta(doc docstore.Document) (Meta, error) {
	var m Meta
	if err := docstore.Decode(docstore.Document{
		"code":           doc["code"],
		"width":          doc["width"],
		"height":         doc["height"],
		"seed":           doc["seed"],
		"host":           doc["host"],
		"created_at":     doc["created_at"],
		"catalog_digest": doc["catalog_digest"],
	}, &m); err != nil {
		return Meta{}, fmt.Errorf("worldsync: world header: %w", err)
	}
	if m.Width <= 0 || m.Height <= 0 {
		return Meta{}, fmt.Errorf("worldsync: world %q has no dimensions", m.Code)
	}
	return m, nil
}

// GridFromDoc rebuilds the grid stored in a world document.
func GridFromDoc(doc docstore.Document) (*grid.Grid, Meta, error) {
	m, err := ParseMeta(doc)
	if err != nil {
		return nil, Meta{}, err
	}
	g, err := FromWire(doc["tiles"], m.Width, m.Height)
	if err != nil {
		return nil, Meta{}, err
	}
	return g, m, nil
}

// CellWriter queues fire-and-forget field updates. *docstore.Outbox
// satisfies it.
type CellWriter interface {
	Update(path string, fields map[string]any) bool
}

type Adapter struct {
	code     string
	path     string
	grid     *grid.Grid
	out      CellWriter
	log      *zap.Logger
	onChange func(*grid.Grid)

	applied int
	skipped int
}

func NewAdapter(code string, g *grid.Grid, out CellWriter, log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{
		code: code,
		path: docstore.WorldPath(code),
		grid: g,
		out:  out,
		log:  log.Named("worldsync").With(zap.String("world", code)),
	}
}

// OnChange is called after a remote snapshot actually changed the grid.
func (a *Adapter) OnChange(fn func(*grid.Grid)) { a.onChange = fn }

// Grid is the current local grid. Callers must not mutate it.
func (a *Adapter) Grid() *grid.Grid { return a.grid }

func (a *Adapter) Code() string { return a.code }

// ApplyEvent handles one world-document subscription value. Events for other
// paths are ignored.
func (a *Adapter) ApplyEvent(ev docstore.Event) (bool, error) {
	if ev.Path != a.path {
		return false, nil
	}
	if ev.Deleted {
		return false, ErrWorldDeleted
	}
	return a.ApplyRemoteSnapshot(ev.Doc)
}

// ApplyRemoteSnapshot replaces the grid with the document's tiles. It reports
// changed only when the new grid differs from the old one.
func (a *Adapter) ApplyRemoteSnapshot(doc docstore.Document) (bool, error) {
	if doc == nil {
		return false, ErrWorldDeleted
	}
	w, h := a.grid.Width(), a.grid.Height()
	if dw, ok := docstore.AsInt(doc["width"]); ok && dw != w {
		return false, fmt.Errorf("worldsync: remote width %d, local %d", dw, w)
	}
	if dh, ok := docstore.AsInt(doc["height"]); ok && dh != h {
		return false, fmt.Errorf("worldsync: remote height %d, local %d", dh, h)
	}
	next, skipped, err := decodeWire(doc["tiles"], w, h)
	if err != nil {
		return false, err
	}
	a.applied++
	if skipped > 0 {
		a.skipped += skipped
		a.log.Warn("skipped malformed cells", zap.Int("cells", skipped), zap.Int("total", a.skipped))
	}
	if next.Equal(a.grid) {
		return false, nil
	}
	a.grid = next
	if a.onChange != nil {
		a.onChange(next)
	}
	return true, nil
}

// PushCellEdit queues a single-cell update of the world document.
func (a *Adapter) PushCellEdit(x, y int, id catalogs.TileID) bool {
	if a.out == nil {
		return false
	}
	ok := a.out.Update(a.path, map[string]any{CellField(x, y): int(id)})
	if !ok {
		a.log.Debug("cell edit not queued", zap.Int("x", x), zap.Int("y", y))
	}
	return ok
}

// BreakTile clears a non-air cell and pushes the edit. It returns the tile
// that was there.
func (a *Adapter) BreakTile(x, y int) (catalogs.TileID, bool) {
	if !a.grid.InBounds(x, y) {
		return catalogs.TileAir, false
	}
	prev := a.grid.TileAt(x, y)
	if prev == catalogs.TileAir {
		return catalogs.TileAir, false
	}
	a.grid.SetTile(x, y, catalogs.TileAir)
	a.PushCellEdit(x, y, catalogs.TileAir)
	return prev, true
}

// PlaceTile fills an air cell and pushes the edit.
func (a *Adapter) PlaceTile(x, y int, id catalogs.TileID) bool {
	if id == catalogs.TileAir || !catalogs.Registered(id) {
		return false
	}
	if !a.grid.InBounds(x, y) || a.grid.TileAt(x, y) != catalogs.TileAir {
		return false
	}
	a.grid.SetTile(x, y, id)
	a.PushCellEdit(x, y, id)
	return true
}

type Stats struct {
	Snapshots    int
	SkippedCells int
}

func (a *Adapter) Stats() Stats { return Stats{Snapshots: a.applied, SkippedCells: a.skipped} }

// WireSize is the encoded size of a world document, for logs.
func WireSize(doc docstore.Document) string {
	b, err := json.Marshal(doc)
	if err != nil {
		return "?"
	}
	return humanize.Bytes(uint64(len(b)))
}
