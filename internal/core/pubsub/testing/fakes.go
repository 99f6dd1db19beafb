// Package testing provides recording fakes of the pubsub interfaces for job
// producer and consumer tests.
package testing

import (
	"context"
	"sync"
	"time"

	"github.com/syntrixbase/marketsearch/internal/core/pubsub"
)

// PublishedMessage is one recorded Publish call.
type PublishedMessage struct {
	Subject string
	Data    []byte
	MsgID   string
}

// MockPublisher records published messages.
type MockPublisher struct {
	mu     sync.Mutex
	sent   []PublishedMessage
	err    error
	closed bool
}

func NewMockPublisher() *MockPublisher { return &MockPublisher{} }

func (p *MockPublisher) Publish(_ context.Context, subject string, data []byte, opts ...pubsub.PublishOption) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, PublishedMessage{
		Subject: subject,
		Data:    append([]byte(nil), data...),
		MsgID:   pubsub.ApplyPublishOptions(opts...).MsgID,
	})
	return nil
}

func (p *MockPublisher) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

// Messages returns a copy of what was published so far.
func (p *MockPublisher) Messages() []PublishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PublishedMessage(nil), p.sent...)
}

// SetError makes every following Publish fail with err.
func (p *MockPublisher) SetError(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func (p *MockPublisher) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

type settlement int

const (
	pending settlement = iota
	acked
	naked
	termed
)

// MockMessage is a delivered message that records how it was settled.
type MockMessage struct {
	subject string
	data    []byte

	mu       sync.Mutex
	state    settlement
	nakDelay time.Duration
	md       pubsub.MessageMetadata
	mdErr    error
}

// NewMockMessage creates a first delivery of data on subject.
func NewMockMessage(subject string, data []byte) *MockMessage {
	return &MockMessage{
		subject: subject,
		data:    data,
		md:      pubsub.MessageMetadata{NumDelivered: 1, Timestamp: time.Now(), Subject: subject},
	}
}

func (m *MockMessage) Data() []byte    { return m.data }
func (m *MockMessage) Subject() string { return m.subject }

func (m *MockMessage) Ack() error  { return m.settle(acked, 0) }
func (m *MockMessage) Nak() error  { return m.settle(naked, 0) }
func (m *MockMessage) Term() error { return m.settle(termed, 0) }

func (m *MockMessage) NakWithDelay(delay time.Duration) error { return m.settle(naked, delay) }

func (m *MockMessage) Metadata() (pubsub.MessageMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.md, m.mdErr
}

func (m *MockMessage) settle(s settlement, delay time.Duration) error {
	m.mu.Lock()
	m.state, m.nakDelay = s, delay
	m.mu.Unlock()
	return nil
}

func (m *MockMessage) is(s settlement) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == s
}

func (m *MockMessage) IsAcked() bool  { return m.is(acked) }
func (m *MockMessage) IsNaked() bool  { return m.is(naked) }
func (m *MockMessage) IsTermed() bool { return m.is(termed) }

// NakDelay returns the delay of the last NakWithDelay.
func (m *MockMessage) NakDelay() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nakDelay
}

// SetMetadata replaces the delivery metadata, e.g. to simulate a redelivery.
func (m *MockMessage) SetMetadata(md pubsub.MessageMetadata) {
	m.mu.Lock()
	m.md = md
	m.mu.Unlock()
}

// FailMetadata makes Metadata return err.
func (m *MockMessage) FailMetadata(err error) {
	m.mu.Lock()
	m.mdErr = err
	m.mu.Unlock()
}

// MockConsumer hands messages passed to Send to the subscriber.
type MockConsumer struct {
	mu      sync.Mutex
	ch      chan pubsub.Message
	started bool
	err     error
}

func NewMockConsumer() *MockConsumer { return &MockConsumer{} }

// Subscribe opens the delivery channel. It is closed when ctx is done.
func (c *MockConsumer) Subscribe(ctx context.Context) (<-chan pubsub.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}

	ch := make(chan pubsub.Message, 100)
	c.ch, c.started = ch, true
	go func() {
		<-ctx.Done()
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.ch == ch {
			c.ch = nil
		}
		close(ch)
	}()
	return ch, nil
}

// Send delivers msg. It is dropped when nobody is subscribed.
func (c *MockConsumer) Send(msg pubsub.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ch != nil {
		c.ch <- msg
	}
}

// IsStarted reports whether Subscribe succeeded.
func (c *MockConsumer) IsStarted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

// SetError makes Subscribe fail with err.
func (c *MockConsumer) SetError(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}
