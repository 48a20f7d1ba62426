package snapshot

import (
	"path/filepath"
	"testing"

	"acre.game/internal/sim/catalogs"
	"acre.game/internal/sim/world/terrain/gen"
)

func TestWriteReadRestore(t *testing.T) {
	p := gen.DefaultParams(9)
	p.Width, p.Height = 64, 48
	g := gen.Generate(p)

	path := filepath.Join(t.TempDir(), "saves", "ABC123.snap.zst")
	if err := WriteSnapshot(path, Capture("ABC123", p.Seed, g)); err != nil {
		t.Fatalf("write: %v", err)
	}

	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("header: %v", err)
	}
	if h.WorldCode != "ABC123" || h.Version != Version || h.CatalogDigest != catalogs.Digest() {
		t.Fatalf("header = %+v", h)
	}

	snap, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	back, err := Restore(snap)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !back.Equal(g) {
		t.Fatalf("restored grid differs")
	}
	if snap.Seed != 9 {
		t.Fatalf("seed = %d", snap.Seed)
	}
}

func TestRestoreRejectsTamperedDigest(t *testing.T) {
	p := gen.DefaultParams(3)
	p.Width, p.Height = 32, 32
	snap := Capture("ZZZZZZ", 3, gen.Generate(p))
	snap.Header.GridDigest = "00"
	if _, err := Restore(snap); err == nil {
		t.Fatalf("expected digest error")
	}
	snap.Header.Version = 99
	if _, err := Restore(snap); err == nil {
		t.Fatalf("expected version error")
	}
}
