// Package logging configures the process-wide slog logger: console output, rotating
// log files, an errors-only file and suppression of repeated warnings.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/syntrixbase/marketsearch/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	mainLogFile  = "marketsearch.log"
	errorLogFile = "errors.log"

	asyncBuffer = 4096
)

var (
	outputs   []io.Closer
	outputsMu sync.Mutex
)

// Initialize builds the logger from cfg and installs it as the slog default.
func Initialize(cfg config.LoggingConfig) error {
	logger, err := NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	slog.SetDefault(logger)

	slog.Info("Logging initialized",
		"level", cfg.Level,
		"format", cfg.Format,
		"dir", cfg.Dir,
		"console", cfg.Console.Enabled,
		"file", cfg.File.Enabled,
	)
	return nil
}

// NewLogger creates a logger writing to the outputs enabled in cfg.
func NewLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	var handlers []slog.Handler

	if cfg.Console.Enabled {
		handlers = append(handlers, newHandler(os.Stdout, cfg.Console.Format, parseLevel(cfg.Console.Level)))
	}

	if cfg.File.Enabled {
		if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		main := openFile(cfg, mainLogFile)
		handlers = append(handlers, newHandler(main, cfg.File.Format, parseLevel(cfg.File.Level)))

		// Warnings and errors are also kept in their own file
		errs := openFile(cfg, errorLogFile)
		handlers = append(handlers, NewLevelFilter(newHandler(errs, cfg.File.Format, slog.LevelWarn), slog.LevelWarn))
	}

	var handler slog.Handler
	switch len(handlers) {
	case 0:
		handler = slog.NewTextHandler(io.Discard, nil)
	case 1:
		handler = handlers[0]
	default:
		handler = NewMultiHandler(handlers...)
	}

	if cfg.RepeatWindow > 0 {
		handler = NewRepeatHandler(handler, slog.LevelWarn, cfg.RepeatWindow)
	}
	return slog.New(handler), nil
}

// Shutdown flushes and closes every log file opened by NewLogger.
func Shutdown() error {
	outputsMu.Lock()
	defer outputsMu.Unlock()

	var errs []error
	for _, c := range outputs {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	outputs = nil
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to close log files: %w", err)
	}
	return nil
}

func openFile(cfg config.LoggingConfig, name string) io.Writer {
	var w io.WriteCloser = &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, name),
		MaxSize:    cfg.Rotation.MaxSize,
		MaxBackups: cfg.Rotation.MaxBackups,
		MaxAge:     cfg.Rotation.MaxAge,
		Compress:   cfg.Rotation.Compress,
	}
	if cfg.File.Async {
		w = NewAsyncWriter(w, asyncBuffer)
	}

	outputsMu.Lock()
	outputs = append(outputs, w)
	outputsMu.Unlock()
	return w
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	if format == "json" {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}
	return NewTextHandler(w, level)
}
