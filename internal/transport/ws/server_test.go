package ws

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"acre.game/internal/persistence/docstore"
	"acre.game/internal/persistence/docstore/docstoretest"
	"acre.game/internal/persistence/docstore/memstore"
	journal "acre.game/internal/persistence/log"
	"acre.game/internal/protocol"
	"acre.game/internal/sim/catalogs"
)

type memJournal struct {
	mu      sync.Mutex
	entries []journal.Entry
}

func (j *memJournal) Record(e journal.Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
	return nil
}

func (j *memJournal) ops() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, 0, len(j.entries))
	for _, e := range j.entries {
		out = append(out, e.Op+" "+e.Path)
	}
	return out
}

func startRelay(t *testing.T, opts ServerOptions) (*Client, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	srv := NewServer(store, opts, nil)
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)
	t.Cleanup(func() { _ = store.Close() })

	url := "ws" + strings.TrimPrefix(hs.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	c, err := Dial(ctx, url, DialOptions{ClientName: "test"}, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, store
}

func TestRelayConformance(t *testing.T) {
	docstoretest.Run(t, func(t *testing.T) docstore.Store {
		c, _ := startRelay(t, ServerOptions{Backend: "memory"})
		return c
	})
}

func TestWelcomeCarriesCatalogDigest(t *testing.T) {
	c, _ := startRelay(t, ServerOptions{Backend: "memory"})
	w := c.Welcome()
	if w.ConnID == "" || w.Backend != "memory" {
		t.Fatalf("welcome = %+v", w)
	}
	if w.CatalogDigest != catalogs.Digest() {
		t.Fatalf("digest mismatch")
	}
}

func TestRelayRejectsInvalidDocuments(t *testing.T) {
	v, err := protocol.NewValidator()
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	c, store := startRelay(t, ServerOptions{Validator: v})
	ctx := context.Background()
	path := docstore.WorldPath("ABC234")

	err = c.Set(ctx, path, docstore.Document{"code": "lowercase"})
	if err == nil || !strings.Contains(err.Error(), protocol.ErrSchema) {
		t.Fatalf("set err = %v, want %s", err, protocol.ErrSchema)
	}
	if _, err := store.Get(ctx, path); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("rejected document reached the store: %v", err)
	}

	valid := docstore.Document{
		"code":   "ABC234",
		"seed":   1,
		"width":  2,
		"height": 2,
		"tiles":  map[string]any{"0": map[string]any{"1": 1}},
	}
	if err := c.Set(ctx, path, valid); err != nil {
		t.Fatalf("valid set: %v", err)
	}
	if err := c.Update(ctx, path, map[string]any{"tiles.0.1": 999}); err == nil {
		t.Fatalf("expected out-of-range tile update to fail")
	}
	if err := c.Update(ctx, path, map[string]any{"tiles.0.1": 0}); err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestRelayRejectsBadPath(t *testing.T) {
	c, _ := startRelay(t, ServerOptions{})
	if err := c.Set(context.Background(), "worlds//x", docstore.Document{}); !errors.Is(err, docstore.ErrBadPath) {
		t.Fatalf("err = %v, want ErrBadPath", err)
	}
}

func TestRelayJournalsAcceptedWrites(t *testing.T) {
	j := &memJournal{}
	c, _ := startRelay(t, ServerOptions{Journal: j})
	ctx := context.Background()
	path := docstore.PlayerPath("ABC234", "u1")
	if err := c.Set(ctx, path, docstore.Document{"name": "a"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := c.Get(ctx, path); err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := c.Update(ctx, path, map[string]any{"x": 1}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := c.Delete(ctx, path); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_ = c.Update(ctx, path, map[string]any{"x": 2}) // missing, not journaled

	got := j.ops()
	want := []string{"SET " + path, "UPDATE " + path, "DELETE " + path}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("journal = %v, want %v", got, want)
	}
}

func TestClientCloseEndsSubscriptions(t *testing.T) {
	c, _ := startRelay(t, ServerOptions{})
	sub, err := c.Subscribe(context.Background(), docstore.WorldPath("ABC234"))
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	_ = c.Close()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case _, ok := <-sub.C():
			if !ok {
				if err := c.Set(context.Background(), "worlds/ABC234", docstore.Document{}); !errors.Is(err, docstore.ErrClosed) {
					t.Fatalf("set after close = %v", err)
				}
				return
			}
		case <-deadline:
			t.Fatalf("subscription still open after Close")
		}
	}
}
