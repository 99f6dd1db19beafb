package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/syntrixbase/marketsearch/internal/core/pubsub"
)

// broker routes messages to subscriptions by subject pattern.
type broker struct {
	engine        *Engine
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	backlog       []*memoryMessage
	maxBacklog    int
	seen          map[string]time.Time // msg id -> expiry
	closed        atomic.Bool
	now           func() time.Time
}

type subscription struct {
	pattern    string
	msgCh      chan pubsub.Message
	ctx        context.Context
	cancelFunc context.CancelFunc
}

func newBroker(engine *Engine) *broker {
	return &broker{
		engine:        engine,
		subscriptions: make(map[string]*subscription),
		maxBacklog:    DefaultMaxBacklog,
		seen:          make(map[string]time.Time),
		now:           time.Now,
	}
}

// publish delivers a message to every matching subscription, or parks it in the
// backlog when none matches. A message whose id was seen within window is dropped.
func (b *broker) publish(ctx context.Context, subject string, data []byte, msgID string, window time.Duration) error {
	if b.closed.Load() {
		return ErrEngineClosed
	}

	b.mu.Lock()
	if msgID != "" {
		now := b.now()
		b.expireSeenLocked(now)
		if _, dup := b.seen[msgID]; dup {
			b.mu.Unlock()
			return nil
		}
		b.seen[msgID] = now.Add(window)
	}

	var targets []*subscription
	for pattern, sub := range b.subscriptions {
		if matchSubject(pattern, subject) {
			targets = append(targets, sub)
		}
	}
	if len(targets) == 0 {
		defer b.mu.Unlock()
		if len(b.backlog) >= b.maxBacklog {
			return ErrBacklogFull
		}
		b.backlog = append(b.backlog, b.newMessage(subject, data, nil))
		return nil
	}
	b.mu.Unlock()

	// Sends hold the read lock so no channel is closed mid-send. Unsubscribe and
	// close cancel the subscription before taking the write lock, which releases
	// a sender blocked on a full channel.
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range targets {
		if b.subscriptions[sub.pattern] != sub {
			continue // unsubscribed meanwhile
		}
		select {
		case sub.msgCh <- b.newMessage(subject, data, sub):
		case <-ctx.Done():
			return ctx.Err()
		case <-sub.ctx.Done():
		}
	}
	return nil
}

func (b *broker) newMessage(subject string, data []byte, sub *subscription) *memoryMessage {
	m := &memoryMessage{
		data:         data,
		subject:      subject,
		timestamp:    b.now(),
		numDelivered: 1,
		engine:       b.engine,
	}
	if sub != nil {
		m.bind(sub)
	}
	return m
}

func (b *broker) expireSeenLocked(now time.Time) {
	for id, expiry := range b.seen {
		if now.After(expiry) {
			delete(b.seen, id)
		}
	}
}

// subscribe creates a subscription for the given pattern and hands it every
// backlogged message the pattern matches.
func (b *broker) subscribe(ctx context.Context, pattern string, bufSize int) (<-chan pubsub.Message, func(), error) {
	if b.closed.Load() {
		return nil, nil, ErrEngineClosed
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subscriptions[pattern] != nil {
		return nil, nil, ErrPatternSubscribed
	}

	subCtx, cancel := context.WithCancel(ctx)
	msgCh := make(chan pubsub.Message, bufSize)

	sub := &subscription{
		pattern:    pattern,
		msgCh:      msgCh,
		ctx:        subCtx,
		cancelFunc: cancel,
	}
	b.subscriptions[pattern] = sub

	var pending []*memoryMessage
	kept := b.backlog[:0]
	for _, m := range b.backlog {
		if matchSubject(pattern, m.subject) {
			m.bind(sub)
			pending = append(pending, m)
		} else {
			kept = append(kept, m)
		}
	}
	b.backlog = kept

	if len(pending) > 0 {
		go func() {
			b.mu.RLock()
			defer b.mu.RUnlock()
			for _, m := range pending {
				select {
				case msgCh <- m:
				case <-subCtx.Done():
					return
				}
			}
		}()
	}

	unsubscribe := func() {
		cancel()
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.subscriptions[pattern] == sub {
			delete(b.subscriptions, pattern)
			close(msgCh)
		}
	}

	return msgCh, unsubscribe, nil
}

func (b *broker) backlogLen() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.backlog)
}

// close shuts down the broker and all subscriptions.
func (b *broker) close() error {
	if b.closed.Swap(true) {
		return nil // Already closed
	}

	// Cancel first so senders blocked under the read lock give up.
	b.mu.RLock()
	for _, sub := range b.subscriptions {
		sub.cancelFunc()
	}
	b.mu.RUnlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subscriptions {
		close(sub.msgCh)
	}
	b.subscriptions = nil
	b.backlog = nil
	return nil
}

func (b *broker) isClosed() bool {
	return b.closed.Load()
}
