package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Engine modes.
const (
	EngineLocal  = "local"
	EngineRemote = "remote"
	EngineUCI    = "uci"
)

type AppConfig struct {
	ListenAddr     string
	AllowedOrigins []string

	// EngineMode selects the boundary: in-process rules with a random
	// searcher, in-process rules with a UCI searcher, or a remote host.
	EngineMode       string
	EngineURL        string
	EngineListenAddr string
	EngineTimeout    time.Duration
	EngineDelay      time.Duration
	RandomSeed       int64

	StockfishPath string
	// UCILevel names a preset (level1..level8) that replaces the
	// individual UCI settings below.
	UCILevel      string
	UCIDepth      int
	UCIMoveTime   time.Duration
	UCISkill      int
	UCIThreads    int
	UCIHashMB     int

	GuardStaleTasks bool
	MessagesDir     string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:       ":8080",
		EngineMode:       EngineLocal,
		EngineListenAddr: ":8090",
		EngineTimeout:    10 * time.Second,
		EngineDelay:      100 * time.Millisecond,
		UCIDepth:         10,
		UCISkill:         20,
		UCIThreads:       1,
		UCIHashMB:        16,
		GuardStaleTasks:  true,
	}

	if v := env("DUCHESS_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	cfg.AllowedOrigins = splitList(env("DUCHESS_ALLOWED_ORIGINS"))

	if v := env("DUCHESS_ENGINE"); v != "" {
		cfg.EngineMode = strings.ToLower(v)
	}
	cfg.EngineURL = env("DUCHESS_ENGINE_URL")
	if v := env("DUCHESS_ENGINE_LISTEN_ADDR"); v != "" {
		cfg.EngineListenAddr = v
	}
	if d, ok := millis("DUCHESS_ENGINE_TIMEOUT_MS", false); ok {
		cfg.EngineTimeout = d
	}
	if d, ok := millis("DUCHESS_ENGINE_DELAY_MS", true); ok {
		cfg.EngineDelay = d
	}
	if v := env("DUCHESS_RANDOM_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.RandomSeed = n
		}
	}

	cfg.StockfishPath = env("STOCKFISH_PATH")
	cfg.UCILevel = env("DUCHESS_UCI_LEVEL")
	if n, ok := positiveInt("DUCHESS_UCI_DEPTH"); ok {
		cfg.UCIDepth = n
	}
	if d, ok := millis("DUCHESS_UCI_MOVETIME_MS", false); ok {
		cfg.UCIMoveTime = d
	}
	if v := env("DUCHESS_UCI_SKILL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 20 {
			cfg.UCISkill = n
		}
	}
	if n, ok := positiveInt("DUCHESS_UCI_THREADS"); ok {
		cfg.UCIThreads = n
	}
	if n, ok := positiveInt("DUCHESS_UCI_HASH_MB"); ok {
		cfg.UCIHashMB = n
	}

	if v := env("DUCHESS_GUARD_STALE_TASKS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.GuardStaleTasks = b
		}
	}
	cfg.MessagesDir = env("DUCHESS_MESSAGES_DIR")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	switch c.EngineMode {
	case EngineLocal:
	case EngineRemote:
		if c.EngineURL == "" {
			return errors.New("DUCHESS_ENGINE_URL is required when DUCHESS_ENGINE=remote")
		}
	case EngineUCI:
		if c.StockfishPath == "" {
			return errors.New("STOCKFISH_PATH is required when DUCHESS_ENGINE=uci")
		}
	default:
		return fmt.Errorf("DUCHESS_ENGINE must be local, remote or uci: %q", c.EngineMode)
	}
	return nil
}

func env(key string) string { return strings.TrimSpace(os.Getenv(key)) }

func positiveInt(key string) (int, bool) {
	v := env(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// millis reads a millisecond count; zero is accepted only with allowZero.
func millis(key string, allowZero bool) (time.Duration, bool) {
	v := env(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || (n == 0 && !allowZero) {
		return 0, false
	}
	return time.Duration(n) * time.Millisecond, true
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
