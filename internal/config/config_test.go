package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "acre.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Backend != BackendMemory || cfg.Server.ListenAddr != ":8080" || cfg.Game.FrameRate != 60 {
		t.Fatalf("defaults = %+v", cfg)
	}
}

func TestLoadOverridesKeepUnsetDefaults(t *testing.T) {
	path := writeConfig(t, `
[store]
backend = "sqlite"
sqlite_path = "/tmp/acre.db"
write_timeout = "2s"

[logging]
level = "debug"
format = "json"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Backend != BackendSQLite || cfg.Store.SQLitePath != "/tmp/acre.db" {
		t.Fatalf("store = %+v", cfg.Store)
	}
	if cfg.Store.WriteTimeout != 2*time.Second {
		t.Fatalf("write_timeout = %v", cfg.Store.WriteTimeout)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	if cfg.Game.FrameRate != 60 || cfg.Server.JournalDir != "data/journal" {
		t.Fatalf("unset sections lost defaults: %+v %+v", cfg.Game, cfg.Server)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"unknown backend", "[store]\nbackend = \"redis\"\n", "unknown store.backend"},
		{"relay without url", "[store]\nbackend = \"relay\"\nrelay_url = \"\"\n", "relay_url"},
		{"zero frame rate", "[game]\nframe_rate = 0\n", "frame_rate"},
		{"bad toml", "[store\n", "parse config"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want %q", err, tc.want)
			}
		})
	}
}
