package pubsub

import (
	"context"
	"io"
)

// Provider creates publishers and consumers on one broker connection.
// Job producers and the counter sync consumer only see this interface, so
// the JetStream and in-process engines are interchangeable.
type Provider interface {
	io.Closer

	NewPublisher(opts PublisherOptions) (Publisher, error)
	NewConsumer(opts ConsumerOptions) (Consumer, error)
}

// Connectable is implemented by providers that dial a broker before use.
type Connectable interface {
	Connect(ctx context.Context) error
}
