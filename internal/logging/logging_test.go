package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"acre.game/internal/config"
)

func TestNewLevels(t *testing.T) {
	cases := []struct {
		cfg  config.LoggingConfig
		want zapcore.Level
	}{
		{config.LoggingConfig{Level: "debug", Format: "console"}, zapcore.DebugLevel},
		{config.LoggingConfig{Level: "warn", Format: "json"}, zapcore.WarnLevel},
		{config.LoggingConfig{Level: "loud"}, zapcore.InfoLevel},
	}
	for _, tc := range cases {
		log, err := New(tc.cfg)
		if err != nil {
			t.Fatalf("New(%+v): %v", tc.cfg, err)
		}
		if !log.Core().Enabled(tc.want) {
			t.Fatalf("%+v: level %s disabled", tc.cfg, tc.want)
		}
		if tc.want > zapcore.DebugLevel && log.Core().Enabled(tc.want-1) {
			t.Fatalf("%+v: level %s enabled", tc.cfg, tc.want-1)
		}
	}
}
