package memory

import (
	"context"
	"sync"
	"time"

	"github.com/syntrixbase/marketsearch/internal/core/pubsub"
)

// memoryMessage implements pubsub.Message for in-memory delivery.
type memoryMessage struct {
	data      []byte
	subject   string
	timestamp time.Time

	engine       *Engine
	redeliveryCh chan pubsub.Message
	ctx          context.Context

	mu           sync.Mutex
	numDelivered uint64
	settled      bool // acked, naked or termed for the current delivery
	acked        bool
	termed       bool
}

func (m *memoryMessage) bind(sub *subscription) {
	m.redeliveryCh = sub.msgCh
	m.ctx = sub.ctx
}

func (m *memoryMessage) Data() []byte {
	return m.data
}

func (m *memoryMessage) Subject() string {
	return m.subject
}

func (m *memoryMessage) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settled {
		return nil
	}
	m.settled = true
	m.acked = true
	return nil
}

// Nak requeues immediately. The message is dropped if the subscriber's buffer is full.
func (m *memoryMessage) Nak() error {
	if !m.settleForRedelivery() {
		return nil
	}
	m.redeliver(false)
	return nil
}

// NakWithDelay requeues the message after a delay.
func (m *memoryMessage) NakWithDelay(delay time.Duration) error {
	if !m.settleForRedelivery() {
		return nil
	}
	time.AfterFunc(delay, func() {
		m.redeliver(true)
	})
	return nil
}

func (m *memoryMessage) Term() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settled {
		return nil
	}
	m.settled = true
	m.termed = true
	return nil
}

func (m *memoryMessage) Metadata() (pubsub.MessageMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return pubsub.MessageMetadata{
		NumDelivered: m.numDelivered,
		Timestamp:    m.timestamp,
		Subject:      m.subject,
	}, nil
}

func (m *memoryMessage) settleForRedelivery() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settled {
		return false
	}
	m.settled = true
	return true
}

func (m *memoryMessage) redeliver(block bool) {
	if m.engine.IsClosed() || m.redeliveryCh == nil {
		return
	}
	select {
	case <-m.ctx.Done():
		return
	default:
	}

	m.mu.Lock()
	m.settled = false
	m.numDelivered++
	m.mu.Unlock()

	// The subscription may close its channel concurrently.
	defer func() {
		_ = recover()
	}()

	if block {
		select {
		case m.redeliveryCh <- m:
		case <-m.ctx.Done():
		}
		return
	}
	select {
	case m.redeliveryCh <- m:
	case <-m.ctx.Done():
	default:
	}
}

// state reports how the last delivery was settled.
func (m *memoryMessage) state() (acked, termed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acked, m.termed
}
