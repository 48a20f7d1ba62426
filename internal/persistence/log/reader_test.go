package log

import (
	"errors"
	"testing"
	"time"
)

func TestReadEntriesAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	j := NewJournal(dir)
	clock := time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)
	j.now = func() time.Time { return clock }

	ops := []string{"SET", "UPDATE", "DELETE"}
	for _, op := range ops {
		if err := j.Record(Entry{Conn: "c1", Op: op, Path: "worlds/ABC234"}); err != nil {
			t.Fatalf("record: %v", err)
		}
		clock = clock.Add(time.Hour)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := JournalFiles(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("files = %v", files)
	}
	var got []string
	for _, f := range files {
		if err := ReadEntries(f, func(e Entry) error {
			got = append(got, e.Op)
			return nil
		}); err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
	}
	if len(got) != 3 || got[0] != "SET" || got[1] != "UPDATE" || got[2] != "DELETE" {
		t.Fatalf("order = %v", got)
	}

	stop := errors.New("stop")
	if err := ReadEntries(files[0], func(Entry) error { return stop }); !errors.Is(err, stop) {
		t.Fatalf("callback error not returned: %v", err)
	}
}

func TestJournalFilesMissingDir(t *testing.T) {
	if _, err := JournalFiles(t.TempDir()); err == nil {
		t.Fatalf("expected error for missing journal dir")
	}
}
