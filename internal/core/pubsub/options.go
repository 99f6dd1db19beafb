package pubsub

import (
	"fmt"
	"strings"
	"time"
)

// StorageType defines the storage backend for streams.
type StorageType int

const (
	// MemoryStorage stores data in memory (default).
	MemoryStorage StorageType = iota
	// FileStorage stores data on disk.
	FileStorage
)

// ParseStorageType parses "memory" or "file".
func ParseStorageType(s string) (StorageType, error) {
	switch strings.ToLower(s) {
	case "", "memory":
		return MemoryStorage, nil
	case "file":
		return FileStorage, nil
	}
	return MemoryStorage, fmt.Errorf("unknown stream storage %q", s)
}

// DefaultDuplicateWindow is how long a message id is remembered for deduplication.
const DefaultDuplicateWindow = 2 * time.Minute

// PublisherOptions configures publisher behavior.
type PublisherOptions struct {
	// StreamName is the name of the stream to publish to.
	StreamName string

	// SubjectPrefix is prepended to all subjects.
	SubjectPrefix string

	// RetryAttempts is the number of retry attempts for publishing.
	// 0 means no retry (default).
	RetryAttempts int

	// Storage is the storage type for the stream.
	Storage StorageType

	// DuplicateWindow bounds deduplication of messages published with WithMsgID.
	// Defaults to DefaultDuplicateWindow.
	DuplicateWindow time.Duration

	// OnPublish is called after each publish attempt (for metrics).
	OnPublish func(subject string, err error, latency time.Duration)
}

// ConsumerOptions configures consumer behavior.
type ConsumerOptions struct {
	// StreamName is the name of the stream to consume from.
	StreamName string

	// ConsumerName is the durable consumer name.
	ConsumerName string

	// FilterSubject filters messages by subject pattern.
	FilterSubject string

	// ChannelBufSize is the buffer size for the message channel.
	ChannelBufSize int

	// Storage is the storage type for the stream.
	Storage StorageType

	// AckWait is how long the broker waits for an ack before redelivering.
	// Zero keeps the broker default.
	AckWait time.Duration

	// MaxAckPending limits unacknowledged messages in flight. Zero keeps the broker default.
	MaxAckPending int
}

// DefaultConsumerOptions returns ConsumerOptions with sensible defaults.
func DefaultConsumerOptions() ConsumerOptions {
	return ConsumerOptions{
		ChannelBufSize: 100,
	}
}

// PublishOptions are per-message publish settings.
type PublishOptions struct {
	// MsgID lets the stream drop a message already published with the same id
	// within the duplicate window.
	MsgID string
}

// PublishOption configures a single Publish call.
type PublishOption func(*PublishOptions)

// WithMsgID sets the message id used for deduplication.
func WithMsgID(id string) PublishOption {
	return func(o *PublishOptions) {
		o.MsgID = id
	}
}

// ApplyPublishOptions folds opts into a PublishOptions value.
func ApplyPublishOptions(opts ...PublishOption) PublishOptions {
	var o PublishOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
