package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, e := range os.Environ() {
		if len(e) > 7 && e[:7] == "LADDER_" {
			key := e[:indexByte(e, '=')]
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return len(s)
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Addr != ":9090" {
		t.Errorf("expected default addr :9090, got %s", cfg.Addr)
	}
	if cfg.TopWindowSize != 100 {
		t.Errorf("expected default top window 100, got %d", cfg.TopWindowSize)
	}
	if cfg.RecomputeSchedule != "0 0 * * *" {
		t.Errorf("expected default recompute schedule, got %s", cfg.RecomputeSchedule)
	}
	if cfg.WorkerCount < 1 {
		t.Errorf("expected positive default worker count, got %d", cfg.WorkerCount)
	}
	if len(cfg.ActivityWeights) == 0 {
		t.Error("expected default activity weights")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LADDER_ADDR", ":8181")
	t.Setenv("LADDER_LOG_LEVEL", "debug")
	t.Setenv("LADDER_TOP_WINDOW_SIZE", "50")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Addr != ":8181" {
		t.Errorf("expected addr :8181, got %s", cfg.Addr)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.LogLevel)
	}
	if cfg.TopWindowSize != 50 {
		t.Errorf("expected top window 50, got %d", cfg.TopWindowSize)
	}
}

func TestLoad_FileThenEnvPrecedence(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "ladder.yaml")
	content := []byte("addr: \":7070\"\nlog_level: warn\ntop_window_size: 25\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("LADDER_CONFIG", path)
	t.Setenv("LADDER_LOG_LEVEL", "error") // env wins over file

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Addr != ":7070" {
		t.Errorf("expected addr from file :7070, got %s", cfg.Addr)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("expected env to win over file, got %s", cfg.LogLevel)
	}
	if cfg.TopWindowSize != 25 {
		t.Errorf("expected top window from file 25, got %d", cfg.TopWindowSize)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("LADDER_TOP_WINDOW_SIZE", "0")

	_, err := Load(context.Background())
	if err == nil {
		t.Fatal("expected error for zero top_window_size")
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("LADDER_CONFIG", "/nonexistent/ladder.yaml")

	if _, err := Load(context.Background()); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
