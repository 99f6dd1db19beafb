package logging

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// captureHandler records every record it receives.
type captureHandler struct {
	mu      sync.Mutex
	level   slog.Level
	records []slog.Record
	attrs   []slog.Attr
	groups  []string
	err     error
}

func (h *captureHandler) Enabled(_ context.Context, level slog.Level) bool { return level >= h.level }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return h.err
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.attrs = append(h.attrs, attrs...)
	return h
}

func (h *captureHandler) WithGroup(name string) slog.Handler {
	h.groups = append(h.groups, name)
	return h
}

func (h *captureHandler) messages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.records))
	for i, r := range h.records {
		out[i] = r.Message
	}
	return out
}

var errWrite = errors.New("disk full")
