package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestConfig(t *testing.T) {
	tests := []struct {
		name     string
		json     bool
		debug    bool
		encoding string
		level    zapcore.Level
	}{
		{"console info", false, false, "console", zapcore.InfoLevel},
		{"json debug", true, true, "json", zapcore.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config(tt.json, tt.debug)
			if cfg.Encoding != tt.encoding {
				t.Fatalf("encoding = %s, want %s", cfg.Encoding, tt.encoding)
			}
			if cfg.Level.Level() != tt.level {
				t.Fatalf("level = %s, want %s", cfg.Level.Level(), tt.level)
			}
			if len(cfg.OutputPaths) != 1 || cfg.OutputPaths[0] != "stderr" {
				t.Fatalf("expected logs on stderr, got %v", cfg.OutputPaths)
			}
		})
	}

	if _, err := New(true, false); err != nil {
		t.Fatalf("new: %v", err)
	}
}
