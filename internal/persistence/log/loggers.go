package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// DefaultSegmentEntries caps one journal segment.
const DefaultSegmentEntries = 100_000

// Entry is one accepted write as seen by the relay.
type Entry struct {
	TS     int64          `json:"ts"`
	Conn   string         `json:"conn"`
	Op     string         `json:"op"`
	Path   string         `json:"path"`
	Fields map[string]any `json:"fields,omitempty"`
	Bytes  int            `json:"bytes,omitempty"`
}

// Journal appends relay writes to zstd JSONL segments named
// writes-<UTC hour>-<seq>.jsonl.zst under dir/journal. A new segment starts
// at each hour and whenever the current one holds maxEntries writes. A
// segment is only fully decodable once it has been closed.
type Journal struct {
	dir        string
	maxEntries int
	now        func() time.Time

	mu      sync.Mutex
	hour    string
	seq     int
	entries int
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJournal(dir string) *Journal {
	return &Journal{
		dir:        filepath.Join(dir, "journal"),
		maxEntries: DefaultSegmentEntries,
		now:        time.Now,
	}
}

// Record stamps e with the journal clock when it carries no time and appends
// it to the current segment.
func (j *Journal) Record(e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now().UTC()
	if e.TS == 0 {
		e.TS = now.UnixMilli()
	}
	hour := now.Format("2006-01-02-15")
	switch {
	case hour != j.hour:
		if err := j.openLocked(hour, 0); err != nil {
			return err
		}
	case j.entries >= j.maxEntries:
		if err := j.openLocked(hour, j.seq+1); err != nil {
			return err
		}
	}

	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("journal %s %s: %w", e.Op, e.Path, err)
	}
	if _, err := j.w.Write(b); err != nil {
		return err
	}
	if err := j.w.WriteByte('\n'); err != nil {
		return err
	}
	j.entries++
	return j.w.Flush()
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.closeLocked()
}

func (j *Journal) segmentPath(hour string, seq int) string {
	return filepath.Join(j.dir, fmt.Sprintf("writes-%s-%03d.jsonl.zst", hour, seq))
}

func (j *Journal) openLocked(hour string, seq int) error {
	if err := j.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(j.segmentPath(hour, seq), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	j.f, j.enc = f, enc
	j.w = bufio.NewWriterSize(enc, 128*1024)
	j.hour, j.seq, j.entries = hour, seq, 0
	return nil
}

func (j *Journal) closeLocked() error {
	var err error
	if j.w != nil {
		err = j.w.Flush()
		j.w = nil
	}
	if j.enc != nil {
		if cerr := j.enc.Close(); err == nil {
			err = cerr
		}
		j.enc = nil
	}
	if j.f != nil {
		if cerr := j.f.Close(); err == nil {
			err = cerr
		}
		j.f = nil
	}
	return err
}
