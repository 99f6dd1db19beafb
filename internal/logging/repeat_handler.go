package logging

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// maxTracked bounds the number of distinct records remembered between prunes.
const maxTracked = 1024

// RepeatHandler collapses identical records at or above a level. The first
// occurrence is passed through; identical records within the window after it are
// counted and dropped, and the count is attached as "repeated" to the next
// occurrence passed through once the window has elapsed. Identity is level,
// message and attributes, never the timestamp.
type RepeatHandler struct {
	next   slog.Handler
	min    slog.Level
	window time.Duration
	scope  string // WithAttrs/WithGroup state folded into the identity
	state  *repeatState
}

type repeatState struct {
	mu   sync.Mutex
	seen map[uint64]*occurrence
	now  func() time.Time
}

type occurrence struct {
	at         time.Time
	suppressed int
}

func NewRepeatHandler(next slog.Handler, minLevel slog.Level, window time.Duration) *RepeatHandler {
	return &RepeatHandler{
		next:   next,
		min:    minLevel,
		window: window,
		state:  &repeatState{seen: make(map[uint64]*occurrence), now: time.Now},
	}
}

func (h *RepeatHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *RepeatHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level < h.min {
		return h.next.Handle(ctx, r)
	}

	key := h.identity(r)
	s := h.state

	s.mu.Lock()
	now := s.now()
	prev, ok := s.seen[key]
	if ok && now.Sub(prev.at) < h.window {
		prev.suppressed++
		s.mu.Unlock()
		return nil
	}
	repeated := 0
	if ok {
		repeated = prev.suppressed
	}
	s.seen[key] = &occurrence{at: now}
	if len(s.seen) > maxTracked {
		s.pruneLocked(now, h.window)
	}
	s.mu.Unlock()

	if repeated > 0 {
		r = r.Clone()
		r.AddAttrs(slog.Int("repeated", repeated))
	}
	return h.next.Handle(ctx, r)
}

func (h *RepeatHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	scope := h.scope
	for _, a := range attrs {
		scope += "|" + a.String()
	}
	return &RepeatHandler{next: h.next.WithAttrs(attrs), min: h.min, window: h.window, scope: scope, state: h.state}
}

func (h *RepeatHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &RepeatHandler{next: h.next.WithGroup(name), min: h.min, window: h.window, scope: h.scope + "|#" + name, state: h.state}
}

func (h *RepeatHandler) identity(r slog.Record) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(h.scope)
	_, _ = d.WriteString("|" + strconv.Itoa(int(r.Level)) + "|" + r.Message)
	r.Attrs(func(a slog.Attr) bool {
		_, _ = d.WriteString("|" + a.String())
		return true
	})
	return d.Sum64()
}

// pruneLocked forgets records whose window has elapsed with nothing suppressed.
func (s *repeatState) pruneLocked(now time.Time, window time.Duration) {
	for k, o := range s.seen {
		if o.suppressed == 0 && now.Sub(o.at) >= window {
			delete(s.seen, k)
		}
	}
}
