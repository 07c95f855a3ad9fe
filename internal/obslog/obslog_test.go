package obslog

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warning")
	t.Setenv("LOG_FORMAT", "xml")
	t.Setenv("LOG_TO_FILE", "")
	o := OptionsFromEnv()
	if o.Level != zapcore.WarnLevel {
		t.Fatalf("level = %v", o.Level)
	}
	if o.Format != "legacy" {
		t.Fatalf("unknown format should fall back to legacy, got %q", o.Format)
	}
	if o.File != "" {
		t.Fatalf("file output should default off")
	}
}

func TestBuildJSONConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Build(Options{Level: zapcore.InfoLevel, Console: true, Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("session_new_game", zap.String("session_id", "abc"))
	_ = logger.Sync()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %q", buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("not json: %v", err)
	}
	if entry["msg"] != "session_new_game" || entry["session_id"] != "abc" || entry["level"] != "info" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestBuildFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "duchess.log")
	logger, err := Build(Options{Level: zapcore.DebugLevel, File: path, Format: "console"}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	logger.Warn("engine_transport_error")
	_ = logger.Sync()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(raw), "engine_transport_error") {
		t.Fatalf("log file missing entry: %q", raw)
	}
}

func TestGlobalDefaultsToNop(t *testing.T) {
	if L() == nil {
		t.Fatalf("L() returned nil")
	}
}
