package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Host != "127.0.0.1" {
		t.Errorf("Host = %q, want 127.0.0.1", cfg.Host)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.TickInterval != 250*time.Millisecond {
		t.Errorf("TickInterval = %v, want 250ms", cfg.TickInterval)
	}
	if cfg.Speed != 1.0 {
		t.Errorf("Speed = %v, want 1.0", cfg.Speed)
	}
	if cfg.Format != "json" {
		t.Errorf("Format = %q, want json", cfg.Format)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TRIPSCOPE_PORT", "9090")
	t.Setenv("TRIPSCOPE_SPEED", "5")
	t.Setenv("TRIPSCOPE_TICK_MS", "100")
	t.Setenv("TRIPSCOPE_FORMAT", "protobuf")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.Speed != 5.0 {
		t.Errorf("Speed = %v, want 5.0", cfg.Speed)
	}
	if cfg.TickInterval != 100*time.Millisecond {
		t.Errorf("TickInterval = %v, want 100ms", cfg.TickInterval)
	}
	if cfg.Format != "protobuf" {
		t.Errorf("Format = %q, want protobuf", cfg.Format)
	}
}

func TestLoadInvalid(t *testing.T) {
	cases := []struct {
		key   string
		value string
	}{
		{"TRIPSCOPE_PORT", "not-a-port"},
		{"TRIPSCOPE_PORT", "0"},
		{"TRIPSCOPE_SPEED", "-1"},
		{"TRIPSCOPE_SPEED", "0"},
		{"TRIPSCOPE_TICK_MS", "0"},
		{"TRIPSCOPE_FORMAT", "xml"},
		{"TRIPSCOPE_LOG_LEVEL", "loud"},
	}

	for _, tc := range cases {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%q", tc.key, tc.value)
			}
		})
	}
}
