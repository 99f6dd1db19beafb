package logging

import (
	"context"
	"log/slog"
)

// LevelFilter drops records below a minimum level before they reach the wrapped handler.
type LevelFilter struct {
	next slog.Handler
	min  slog.Level
}

func NewLevelFilter(next slog.Handler, minLevel slog.Level) *LevelFilter {
	return &LevelFilter{next: next, min: minLevel}
}

func (f *LevelFilter) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= f.min && f.next.Enabled(ctx, level)
}

func (f *LevelFilter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level < f.min {
		return nil
	}
	return f.next.Handle(ctx, r)
}

func (f *LevelFilter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LevelFilter{next: f.next.WithAttrs(attrs), min: f.min}
}

func (f *LevelFilter) WithGroup(name string) slog.Handler {
	return &LevelFilter{next: f.next.WithGroup(name), min: f.min}
}
