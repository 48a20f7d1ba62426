// Package docstoretest holds the behaviour every docstore backend must share.
package docstoretest

import (
	"context"
	"errors"
	"testing"
	"time"

	"acre.game/internal/persistence/docstore"
)

const waitFor = 3 * time.Second

// WaitEvent reads sub until match accepts an event.
func WaitEvent(t *testing.T, sub *docstore.Subscription[docstore.Event], match func(docstore.Event) bool) docstore.Event {
	t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case ev, ok := <-sub.C():
			if !ok {
				t.Fatalf("subscription closed while waiting")
			}
			if match(ev) {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for document event")
		}
	}
}

func WaitMembers(t *testing.T, sub *docstore.Subscription[docstore.CollectionEvent], match func(map[string]docstore.Document) bool) map[string]docstore.Document {
	t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case ev, ok := <-sub.C():
			if !ok {
				t.Fatalf("subscription closed while waiting")
			}
			if match(ev.Members) {
				return ev.Members
			}
		case <-deadline:
			t.Fatalf("timed out waiting for collection event")
		}
	}
}

func tileAt(doc docstore.Document, x, y string) (int, bool) {
	tiles, ok := docstore.AsMap(doc["tiles"])
	if !ok {
		return 0, false
	}
	col, ok := docstore.AsMap(tiles[x])
	if !ok {
		return 0, false
	}
	return docstore.AsInt(col[y])
}

// Run exercises a fresh store returned by open.
func Run(t *testing.T, open func(t *testing.T) docstore.Store) {
	t.Run("GetMissing", func(t *testing.T) {
		s := open(t)
		if _, err := s.Get(context.Background(), "worlds/NOPE22"); !errors.Is(err, docstore.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("SetGetUpdate", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		path := docstore.WorldPath("ABC234")
		doc := docstore.Document{
			"code":  "ABC234",
			"width": 300,
			"tiles": map[string]any{"1": map[string]any{"2": 3}},
		}
		if err := s.Set(ctx, path, doc); err != nil {
			t.Fatalf("set: %v", err)
		}
		got, err := s.Get(ctx, path)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if w, ok := docstore.AsInt(got["width"]); !ok || w != 300 {
			t.Fatalf("width = %v", got["width"])
		}
		if err := s.Update(ctx, path, map[string]any{"tiles.1.2": 0, "tiles.9.4": 5}); err != nil {
			t.Fatalf("update: %v", err)
		}
		got, _ = s.Get(ctx, path)
		if v, ok := tileAt(got, "1", "2"); !ok || v != 0 {
			t.Fatalf("tiles.1.2 = %v,%v", v, ok)
		}
		if v, ok := tileAt(got, "9", "4"); !ok || v != 5 {
			t.Fatalf("tiles.9.4 = %v,%v", v, ok)
		}
		if got["code"] != "ABC234" {
			t.Fatalf("update clobbered other fields: %v", got)
		}
		if err := s.Update(ctx, docstore.WorldPath("ZZZ999"), map[string]any{"a": 1}); !errors.Is(err, docstore.ErrNotFound) {
			t.Fatalf("update missing err = %v", err)
		}
	})

	t.Run("SubscribeDocument", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		path := docstore.WorldPath("SUB234")
		sub, err := s.Subscribe(ctx, path)
		if err != nil {
			t.Fatalf("subscribe: %v", err)
		}
		defer sub.Close()
		WaitEvent(t, sub, func(ev docstore.Event) bool { return ev.Deleted })

		if err := s.Set(ctx, path, docstore.Document{"n": 1}); err != nil {
			t.Fatalf("set: %v", err)
		}
		WaitEvent(t, sub, func(ev docstore.Event) bool {
			n, _ := docstore.AsInt(ev.Doc["n"])
			return !ev.Deleted && n == 1
		})
		if err := s.Update(ctx, path, map[string]any{"n": 2}); err != nil {
			t.Fatalf("update: %v", err)
		}
		WaitEvent(t, sub, func(ev docstore.Event) bool {
			n, _ := docstore.AsInt(ev.Doc["n"])
			return n == 2
		})
		if err := s.Delete(ctx, path); err != nil {
			t.Fatalf("delete: %v", err)
		}
		WaitEvent(t, sub, func(ev docstore.Event) bool { return ev.Deleted })
	})

	t.Run("SubscribeCollection", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		col := docstore.PlayersPath("COL234")
		if err := s.Set(ctx, docstore.PlayerPath("COL234", "a"), docstore.Document{"name": "a"}); err != nil {
			t.Fatalf("set: %v", err)
		}
		sub, err := s.SubscribeCollection(ctx, col)
		if err != nil {
			t.Fatalf("subscribe: %v", err)
		}
		defer sub.Close()
		WaitMembers(t, sub, func(m map[string]docstore.Document) bool { return len(m) == 1 && m["a"] != nil })

		if err := s.Set(ctx, docstore.PlayerPath("COL234", "b"), docstore.Document{"name": "b"}); err != nil {
			t.Fatalf("set: %v", err)
		}
		WaitMembers(t, sub, func(m map[string]docstore.Document) bool { return len(m) == 2 })

		if err := s.Delete(ctx, docstore.PlayerPath("COL234", "a")); err != nil {
			t.Fatalf("delete: %v", err)
		}
		members := WaitMembers(t, sub, func(m map[string]docstore.Document) bool { return len(m) == 1 })
		if members["b"]["name"] != "b" {
			t.Fatalf("members = %v", members)
		}
	})

	t.Run("CloseSubscription", func(t *testing.T) {
		s := open(t)
		sub, err := s.Subscribe(context.Background(), docstore.WorldPath("CLS234"))
		if err != nil {
			t.Fatalf("subscribe: %v", err)
		}
		sub.Close()
		sub.Close()
		deadline := time.After(waitFor)
		for {
			select {
			case _, ok := <-sub.C():
				if !ok {
					return
				}
			case <-deadline:
				t.Fatalf("channel not closed")
			}
		}
	})
}
