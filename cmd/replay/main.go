package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"acre.game/internal/persistence/docstore"
	persistlog "acre.game/internal/persistence/log"
	"acre.game/internal/persistence/snapshot"
	"acre.game/internal/sim/catalogs"
	"acre.game/internal/sim/sync/worldsync"
	"acre.game/internal/sim/world/terrain/grid"
)

func main() {
	var (
		journalDir = flag.String("journal", "./data/journal", "relay journal dir (the one passed as [server].journal_dir)")
		snapPath   = flag.String("snapshot", "", "snapshot to apply the world's cell edits to (optional)")
		worldCode  = flag.String("world", "", "world code to replay (defaults to the snapshot's code)")
		outPath    = flag.String("out", "", "write the replayed world to this snapshot file (optional)")
	)
	flag.Parse()

	files, err := persistlog.JournalFiles(*journalDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list journal:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no journal files found in", *journalDir)
		os.Exit(1)
	}

	var (
		g    *grid.Grid
		snap snapshot.SnapshotV1
	)
	code := strings.ToUpper(strings.TrimSpace(*worldCode))
	if *snapPath != "" {
		snap, err = snapshot.ReadSnapshot(*snapPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read snapshot:", err)
			os.Exit(1)
		}
		g, err = snapshot.Restore(snap)
		if err != nil {
			fmt.Fprintln(os.Stderr, "restore snapshot:", err)
			os.Exit(1)
		}
		if code == "" {
			code = snap.Header.WorldCode
		}
		fmt.Printf("snapshot v%d world=%s %dx%d seed=%d\n", snap.Header.Version, snap.Header.WorldCode, snap.Width, snap.Height, snap.Seed)
	}

	st := newStats()
	r := &replayer{grid: g, path: docstore.WorldPath(code), stats: st}
	for _, path := range files {
		if err := persistlog.ReadEntries(path, r.apply); err != nil {
			fmt.Fprintln(os.Stderr, "replay:", err)
			os.Exit(1)
		}
	}
	st.print(os.Stdout)

	if g == nil {
		return
	}
	fmt.Printf("world %s: applied=%d rejected=%d deleted=%v\n", code, r.applied, r.rejected, r.deleted)
	if *outPath == "" {
		return
	}
	out := snapshot.Capture(code, snap.Seed, g)
	if err := snapshot.WriteSnapshot(*outPath, out); err != nil {
		fmt.Fprintln(os.Stderr, "write snapshot:", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s grid=%s\n", *outPath, out.Header.GridDigest[:12])
}

// replayer applies journaled cell edits for one world to a grid.
type replayer struct {
	grid  *grid.Grid
	path  string
	stats *stats

	applied  int
	rejected int
	deleted  bool
}

func (r *replayer) apply(e persistlog.Entry) error {
	r.stats.add(e)
	if r.grid == nil || e.Path != r.path {
		return nil
	}
	switch e.Op {
	case "DELETE":
		r.deleted = true
	case "UPDATE":
		for field, v := range e.Fields {
			x, y, ok := worldsync.ParseCellField(field)
			if !ok {
				continue
			}
			id, ok := docstore.AsInt(v)
			if !ok || id < 0 || id > 255 {
				r.rejected++
				continue
			}
			if _, ok := r.grid.SetTile(x, y, catalogs.TileID(id)); !ok {
				r.rejected++
				continue
			}
			r.applied++
		}
	}
	return nil
}

type stats struct {
	ops    map[string]int
	worlds map[string]int
	bytes  uint64
	first  int64
	last   int64
}

func newStats() *stats {
	return &stats{ops: map[string]int{}, worlds: map[string]int{}}
}

func (s *stats) add(e persistlog.Entry) {
	s.ops[e.Op]++
	if parts := strings.SplitN(e.Path, "/", 3); len(parts) >= 2 && parts[0] == "worlds" {
		s.worlds[parts[1]]++
	}
	s.bytes += uint64(e.Bytes)
	if s.first == 0 || e.TS < s.first {
		s.first = e.TS
	}
	if e.TS > s.last {
		s.last = e.TS
	}
}

func (s *stats) print(w *os.File) {
	total := 0
	for _, n := range s.ops {
		total += n
	}
	fmt.Fprintf(w, "journal: writes=%d set=%d update=%d delete=%d payload=%s span=%dms\n",
		total, s.ops["SET"], s.ops["UPDATE"], s.ops["DELETE"], humanize.Bytes(s.bytes), s.last-s.first)
	codes := make([]string, 0, len(s.worlds))
	for c := range s.worlds {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	for _, c := range codes {
		fmt.Fprintf(w, "  world %s: %d writes\n", c, s.worlds[c])
	}
}
