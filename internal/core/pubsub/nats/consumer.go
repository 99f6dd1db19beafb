package nats

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/syntrixbase/marketsearch/internal/core/pubsub"
)

// jetStreamConsumer implements pubsub.Consumer with a durable pull consumer.
type jetStreamConsumer struct {
	js   JetStream
	opts pubsub.ConsumerOptions
}

// NewConsumer creates a Consumer on the given stream.
func NewConsumer(js JetStream, opts pubsub.ConsumerOptions) (pubsub.Consumer, error) {
	if js == nil {
		return nil, fmt.Errorf("jetstream cannot be nil")
	}
	if opts.StreamName == "" {
		return nil, fmt.Errorf("stream name is required")
	}
	if opts.ChannelBufSize <= 0 {
		opts.ChannelBufSize = pubsub.DefaultConsumerOptions().ChannelBufSize
	}
	if opts.ConsumerName == "" {
		opts.ConsumerName = "consumer"
	}
	return &jetStreamConsumer{js: js, opts: opts}, nil
}

// Subscribe starts consuming messages and returns a channel.
func (c *jetStreamConsumer) Subscribe(ctx context.Context) (<-chan pubsub.Message, error) {
	streamSubject := c.opts.StreamName + ".>"
	filterSubject := c.opts.FilterSubject
	if filterSubject == "" {
		filterSubject = streamSubject
	}

	_, err := c.js.CreateOrUpdateStream(ctx, streamConfig(c.opts.StreamName, streamSubject, c.opts.Storage, pubsub.DefaultDuplicateWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to ensure stream: %w", err)
	}

	cfg := jetstream.ConsumerConfig{
		Durable:       c.opts.ConsumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		FilterSubject: filterSubject,
		AckWait:       c.opts.AckWait,
	}
	if c.opts.MaxAckPending > 0 {
		cfg.MaxAckPending = c.opts.MaxAckPending
	}

	consumer, err := c.js.CreateOrUpdateConsumer(ctx, c.opts.StreamName, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	msgCh := make(chan pubsub.Message, c.opts.ChannelBufSize)

	// Set once shutdown starts so late callbacks never send on the closed channel.
	var closing atomic.Bool

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		if closing.Load() {
			_ = msg.Nak()
			return
		}
		select {
		case msgCh <- WrapMessage(msg):
		case <-ctx.Done():
			_ = msg.Nak()
		}
	})
	if err != nil {
		close(msgCh)
		return nil, fmt.Errorf("failed to start consumer: %w", err)
	}

	slog.Info("Consumer subscribed", "stream", c.opts.StreamName, "consumer", c.opts.ConsumerName, "filter", filterSubject)

	go func() {
		<-ctx.Done()
		closing.Store(true)
		cc.Stop()
		<-cc.Closed()
		close(msgCh)
		slog.Info("Consumer stopped", "stream", c.opts.StreamName, "consumer", c.opts.ConsumerName)
	}()

	return msgCh, nil
}
