package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"fidctail/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	// Writer receives console or JSON output. Defaults to stderr.
	Writer io.Writer
	// File, when set, additionally receives JSON output.
	File        string
	Development bool
}

// New constructs a slog logger using the provided options. The returned
// close func releases the log file and is safe to call more than once.
func New(opts Options) (*slog.Logger, func() error, error) {
	level := parseLevel(opts.Level)
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}

	addSource := opts.Development || level <= slog.LevelDebug

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "console"
	}

	var primary slog.Handler
	switch format {
	case "json":
		primary = newJSONHandler(writer, levelVar, addSource)
	case "console":
		primary = newPrettyHandler(writer, levelVar, addSource)
	default:
		return nil, nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	closeFn := func() error { return nil }
	var fileHandler slog.Handler
	if path := strings.TrimSpace(opts.File); path != "" {
		file, err := openLogFile(path)
		if err != nil {
			return nil, nil, err
		}
		fileHandler = newJSONHandler(file, levelVar, addSource)
		closeFn = sync.OnceValue(file.Close)
	}

	return slog.New(newTeeHandler(primary, fileHandler)), closeFn, nil
}

// NewFromConfig creates a logger using application config defaults.
func NewFromConfig(cfg *config.Config, w io.Writer) (*slog.Logger, func() error, error) {
	if cfg == nil {
		return New(Options{Level: "info", Format: "console", Writer: w})
	}
	return New(Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Writer: w,
		File:   cfg.Logging.File,
	})
}

func parseLevel(level string) slog.Level {
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

func openLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}
