package memory

import (
	"github.com/syntrixbase/marketsearch/internal/core/pubsub"
)

// Compile-time check that Engine implements pubsub.Provider
var _ pubsub.Provider = (*Engine)(nil)

// DefaultMaxBacklog bounds messages held while no subscriber matches them.
const DefaultMaxBacklog = 10000

// Engine is an in-process stand-in for a JetStream stream. Messages published before
// a matching consumer subscribes are held in a backlog and delivered on subscribe.
type Engine struct {
	broker *broker
}

// Option configures an Engine.
type Option func(*broker)

// WithMaxBacklog overrides DefaultMaxBacklog.
func WithMaxBacklog(n int) Option {
	return func(b *broker) {
		b.maxBacklog = n
	}
}

// New creates a new in-memory pubsub engine.
func New(opts ...Option) *Engine {
	e := &Engine{}
	e.broker = newBroker(e)
	for _, opt := range opts {
		opt(e.broker)
	}
	return e
}

// NewPublisher creates a new in-memory Publisher.
func (e *Engine) NewPublisher(opts pubsub.PublisherOptions) (pubsub.Publisher, error) {
	if e.IsClosed() {
		return nil, ErrEngineClosed
	}
	if opts.DuplicateWindow <= 0 {
		opts.DuplicateWindow = pubsub.DefaultDuplicateWindow
	}
	return &memoryPublisher{
		broker: e.broker,
		opts:   opts,
	}, nil
}

// NewConsumer creates a new in-memory Consumer.
func (e *Engine) NewConsumer(opts pubsub.ConsumerOptions) (pubsub.Consumer, error) {
	if e.IsClosed() {
		return nil, ErrEngineClosed
	}
	return &memoryConsumer{
		engine: e,
		broker: e.broker,
		opts:   opts,
	}, nil
}

// Backlog returns the number of messages waiting for a subscriber.
func (e *Engine) Backlog() int {
	return e.broker.backlogLen()
}

// Close shuts down the engine and all subscriptions.
func (e *Engine) Close() error {
	return e.broker.close()
}

// IsClosed returns true if the engine is closed.
func (e *Engine) IsClosed() bool {
	return e.broker.isClosed()
}
