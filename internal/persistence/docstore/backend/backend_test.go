package backend

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"acre.game/internal/config"
	"acre.game/internal/persistence/docstore"
	"acre.game/internal/persistence/docstore/memstore"
	"acre.game/internal/transport/ws"
)

func roundTrip(t *testing.T, s docstore.Store) {
	t.Helper()
	ctx := context.Background()
	if err := s.Set(ctx, "worlds/ABCDEF", docstore.Document{"code": "ABCDEF", "width": 1, "height": 1}); err != nil {
		t.Fatalf("set: %v", err)
	}
	doc, err := s.Get(ctx, "worlds/ABCDEF")
	if err != nil || doc["code"] != "ABCDEF" {
		t.Fatalf("get = %v, %v", doc, err)
	}
}

func TestOpenLocalBackends(t *testing.T) {
	cases := []config.StoreConfig{
		{Backend: config.BackendMemory},
		{Backend: config.BackendSQLite, SQLitePath: filepath.Join(t.TempDir(), "acre.db")},
	}
	for _, cfg := range cases {
		t.Run(cfg.Backend, func(t *testing.T) {
			s, err := Open(context.Background(), cfg, ws.DialOptions{}, nil)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			defer s.Close()
			roundTrip(t, s)
		})
	}
}

func TestOpenRelay(t *testing.T) {
	srv := httptest.NewServer(ws.NewServer(memstore.New(), ws.ServerOptions{Backend: "memory"}, nil).Handler())
	defer srv.Close()

	cfg := config.StoreConfig{Backend: config.BackendRelay, RelayURL: "ws" + strings.TrimPrefix(srv.URL, "http")}
	s, err := Open(context.Background(), cfg, ws.DialOptions{ClientName: "test"}, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	roundTrip(t, s)
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open(context.Background(), config.StoreConfig{Backend: "redis"}, ws.DialOptions{}, nil); err == nil {
		t.Fatalf("expected error")
	}
}
