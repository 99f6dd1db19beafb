package memory

import (
	"context"

	"github.com/syntrixbase/marketsearch/internal/core/pubsub"
)

type memoryConsumer struct {
	engine *Engine
	broker *broker
	opts   pubsub.ConsumerOptions
}

// Subscribe registers the consumer's filter subject and starts delivery. A filter
// subject can have one subscriber at a time, the way a durable consumer has one owner
// per process.
func (c *memoryConsumer) Subscribe(ctx context.Context) (<-chan pubsub.Message, error) {
	if c.engine.IsClosed() {
		return nil, ErrEngineClosed
	}

	pattern := c.opts.FilterSubject
	if pattern == "" {
		if c.opts.StreamName != "" {
			pattern = c.opts.StreamName + ".>"
		} else {
			pattern = ">"
		}
	}

	bufSize := c.opts.ChannelBufSize
	if bufSize <= 0 {
		bufSize = pubsub.DefaultConsumerOptions().ChannelBufSize
	}

	msgCh, unsubscribe, err := c.broker.subscribe(ctx, pattern, bufSize)
	if err != nil {
		return nil, err
	}

	go func() {
		<-ctx.Done()
		unsubscribe()
	}()

	return msgCh, nil
}
