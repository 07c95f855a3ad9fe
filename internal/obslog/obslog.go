// Package obslog configures the process-wide zap logger from the environment.
package obslog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var global atomic.Pointer[zap.Logger]

func init() { global.Store(zap.NewNop()) }

// L returns the global logger; a no-op logger until InitFromEnv runs.
func L() *zap.Logger { return global.Load() }

// Options mirror the LOG_* environment variables.
type Options struct {
	Level   zapcore.Level
	Console bool
	File    string // empty disables file output
	Format  string // legacy, json or console
	Caller  bool
}

func OptionsFromEnv() Options {
	o := Options{
		Level:   parseLevel(getenv("LOG_LEVEL", "info")),
		Console: strings.EqualFold(getenv("LOG_TO_CONSOLE", "true"), "true"),
		Format:  strings.ToLower(getenv("LOG_FORMAT", "legacy")),
		Caller:  strings.EqualFold(getenv("LOG_CALLER", "false"), "true"),
	}
	if strings.EqualFold(getenv("LOG_TO_FILE", "false"), "true") {
		o.File = getenv("LOG_FILE", filepath.Join("logs", "duchess.log"))
	}
	switch o.Format {
	case "legacy", "json", "console":
	default:
		o.Format = "legacy"
	}
	return o
}

// InitFromEnv builds a logger from OptionsFromEnv and installs it globally.
func InitFromEnv() error {
	logger, err := Build(OptionsFromEnv(), os.Stdout)
	if err != nil {
		return err
	}
	global.Store(logger)
	return nil
}

// Build creates a logger writing to console (when enabled) and File.
func Build(o Options, console io.Writer) (*zap.Logger, error) {
	var cores []zapcore.Core
	if o.Console && console != nil {
		cores = append(cores, zapcore.NewCore(encoder(o.Format), zapcore.AddSync(console), o.Level))
	}
	if o.File != "" {
		if dir := filepath.Dir(o.File); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create log dir: %w", err)
			}
		}
		f, err := os.OpenFile(o.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(encoder(o.Format), zapcore.AddSync(f), o.Level))
	}
	if len(cores) == 0 {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), zapcore.AddSync(os.Stdout), o.Level))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zapcore.ErrorLevel))
	if o.Caller || o.Format == "legacy" {
		logger = logger.WithOptions(zap.AddCaller())
	}
	return logger, nil
}

func encoder(format string) zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	switch format {
	case "json":
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		return zapcore.NewJSONEncoder(cfg)
	case "console":
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(cfg)
	default:
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.ConsoleSeparator = " | "
		return zapcore.NewConsoleEncoder(cfg)
	}
}

func parseLevel(s string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(s)))); err != nil {
		if strings.EqualFold(strings.TrimSpace(s), "warning") {
			return zapcore.WarnLevel
		}
		return zapcore.InfoLevel
	}
	return l
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}
