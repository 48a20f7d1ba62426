package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"acre.game/internal/sim/catalogs"
	"acre.game/internal/sim/encoding"
	"acre.game/internal/sim/world/terrain/grid"
)

const Version = 1

// Header is written as a JSON line ahead of the gob body so tools can peek at
// a save without decoding the tiles.
type Header struct {
	Version       int    `json:"version"`
	WorldCode     string `json:"world_code"`
	SavedAt       int64  `json:"saved_at"`
	CatalogDigest string `json:"catalog_digest"`
	GridDigest    string `json:"grid_digest"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	Width  int    `json:"width"`
	Height int    `json:"height"`
	Seed   int64  `json:"seed"`
	Tiles  string `json:"tiles"` // base64 RLE, row-major
}

// Capture freezes g into a snapshot value.
func Capture(code string, seed int64, g *grid.Grid) SnapshotV1 {
	d := g.Digest()
	return SnapshotV1{
		Header: Header{
			Version:       Version,
			WorldCode:     code,
			SavedAt:       time.Now().Unix(),
			CatalogDigest: catalogs.Digest(),
			GridDigest:    hex.EncodeToString(d[:]),
		},
		Width:  g.Width(),
		Height: g.Height(),
		Seed:   seed,
		Tiles:  encoding.EncodeTiles(g.Cells()),
	}
}

// Restore rebuilds the grid and checks it against the recorded digest.
func Restore(snap SnapshotV1) (*grid.Grid, error) {
	if snap.Header.Version != Version {
		return nil, fmt.Errorf("snapshot version %d not supported", snap.Header.Version)
	}
	cells, err := encoding.DecodeTiles(snap.Tiles, snap.Width*snap.Height)
	if err != nil {
		return nil, fmt.Errorf("decode tiles: %w", err)
	}
	g, err := grid.FromCells(snap.Width, snap.Height, cells)
	if err != nil {
		return nil, err
	}
	d := g.Digest()
	if snap.Header.GridDigest != "" && snap.Header.GridDigest != hex.EncodeToString(d[:]) {
		return nil, fmt.Errorf("grid digest mismatch")
	}
	return g, nil
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}

	bw := bufio.NewWriterSize(enc, 64*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return enc.Close()
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)

	// Header line is duplicated inside the gob body.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}

// ReadHeader decodes only the leading JSON line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("header json: %w", err)
	}
	return h, nil
}
