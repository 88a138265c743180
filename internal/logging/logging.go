// Package logging builds the process logger. Output never goes to stdout:
// the stdio MCP transport owns it.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config holds the logging configuration.
type Config struct {
	// Level is debug, info, warn or error.
	Level string
	// Format is text or json.
	Format string
	// Output is stderr, file or both.
	Output string
	// FilePath is the log file when Output includes file.
	FilePath string
	// Component is attached to every record when set.
	Component string
}

// Logger is a slog.Logger whose level can be changed while running.
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
	file  *os.File
}

// New builds a logger from cfg.
func New(cfg Config) (*Logger, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	level := new(slog.LevelVar)
	level.Set(lvl)

	l := &Logger{level: level}
	var w io.Writer
	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
		w = os.Stderr
	case "file", "both":
		if cfg.FilePath == "" {
			return nil, fmt.Errorf("logging output %q needs a file path", cfg.Output)
		}
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		l.file = f
		w = f
		if strings.EqualFold(cfg.Output, "both") {
			w = io.MultiWriter(os.Stderr, f)
		}
	default:
		return nil, fmt.Errorf("unknown logging output %q", cfg.Output)
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		l.Close()
		return nil, fmt.Errorf("unknown logging format %q", cfg.Format)
	}

	l.Logger = slog.New(h)
	if cfg.Component != "" {
		l.Logger = l.Logger.With("component", cfg.Component)
	}
	return l, nil
}

// SetLevel changes the minimum level of this logger and every logger derived from it.
func (l *Logger) SetLevel(s string) error {
	lvl, err := ParseLevel(s)
	if err != nil {
		return err
	}
	l.level.Set(lvl)
	return nil
}

func (l *Logger) Level() slog.Level { return l.level.Level() }

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// ParseLevel accepts debug, info, warn (or warning) and error, in any case.
// Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}
