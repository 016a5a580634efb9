// Package logger configures the process-wide slog logger, optionally teeing
// output into a size-rotated log file.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/seenimoa/mandisense/internal/config"
)

var (
	levelVar slog.LevelVar
	mu       sync.Mutex
	rotator  *lumberjack.Logger
)

// Init installs a logger built from cfg as the slog default.
func Init(cfg config.LoggingConfig) error {
	return InitWithWriter(cfg, os.Stdout)
}

// InitWithWriter is Init with a custom console writer.
func InitWithWriter(cfg config.LoggingConfig, console io.Writer) error {
	mu.Lock()
	defer mu.Unlock()

	out := console
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		if rotator != nil {
			rotator.Close()
		}
		rotator = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(console, rotator)
	}

	SetLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: &levelVar}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// SetLevel changes the level of the installed logger. Unknown names reset to info.
func SetLevel(level string) {
	levelVar.Set(ParseLevel(level))
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Close flushes and closes the rotating file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if rotator == nil {
		return nil
	}
	err := rotator.Close()
	rotator = nil
	return err
}

// With returns the default logger tagged with a component name.
func With(component string) *slog.Logger {
	return slog.Default().With("component", component)
}
