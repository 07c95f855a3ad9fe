package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DUCHESS_ENGINE", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.EngineMode != EngineLocal || cfg.ListenAddr != ":8080" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.EngineDelay != 100*time.Millisecond {
		t.Fatalf("engine delay = %v", cfg.EngineDelay)
	}
	if !cfg.GuardStaleTasks {
		t.Fatalf("stale task guard should default on")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DUCHESS_ENGINE", "UCI")
	t.Setenv("STOCKFISH_PATH", "/usr/games/stockfish")
	t.Setenv("DUCHESS_UCI_DEPTH", "14")
	t.Setenv("DUCHESS_UCI_MOVETIME_MS", "500")
	t.Setenv("DUCHESS_UCI_SKILL", "25")
	t.Setenv("DUCHESS_ENGINE_DELAY_MS", "0")
	t.Setenv("DUCHESS_ALLOWED_ORIGINS", "example.com, *.example.org,")
	t.Setenv("DUCHESS_GUARD_STALE_TASKS", "false")
	t.Setenv("DUCHESS_RANDOM_SEED", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.EngineMode != EngineUCI || cfg.UCIDepth != 14 || cfg.UCIMoveTime != 500*time.Millisecond {
		t.Fatalf("uci settings not applied: %+v", cfg)
	}
	if cfg.UCISkill != 20 {
		t.Fatalf("out-of-range skill should keep default, got %d", cfg.UCISkill)
	}
	if cfg.EngineDelay != 0 {
		t.Fatalf("zero delay not applied: %v", cfg.EngineDelay)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "*.example.org" {
		t.Fatalf("origins = %v", cfg.AllowedOrigins)
	}
	if cfg.GuardStaleTasks || cfg.RandomSeed != 7 {
		t.Fatalf("flags not applied: %+v", cfg)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		mode, want string
	}{
		{"remote", "DUCHESS_ENGINE_URL"},
		{"uci", "STOCKFISH_PATH"},
		{"quantum", "must be local, remote or uci"},
	}
	for _, tc := range cases {
		t.Setenv("DUCHESS_ENGINE", tc.mode)
		t.Setenv("DUCHESS_ENGINE_URL", "")
		t.Setenv("STOCKFISH_PATH", "")
		_, err := Load()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("mode %s: err = %v, want mention of %s", tc.mode, err, tc.want)
		}
	}
}
