package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/syntrixbase/marketsearch/internal/core/pubsub"
)

// jetStreamPublisher implements pubsub.Publisher using NATS JetStream.
type jetStreamPublisher struct {
	js   JetStream
	opts pubsub.PublisherOptions
}

// NewPublisher creates a Publisher and makes sure its stream exists.
func NewPublisher(js JetStream, opts pubsub.PublisherOptions) (pubsub.Publisher, error) {
	if js == nil {
		return nil, fmt.Errorf("jetstream cannot be nil")
	}
	if opts.DuplicateWindow <= 0 {
		opts.DuplicateWindow = pubsub.DefaultDuplicateWindow
	}

	if opts.StreamName != "" {
		subjectRoot := opts.StreamName
		if opts.SubjectPrefix != "" {
			subjectRoot = opts.SubjectPrefix
		}
		_, err := js.CreateOrUpdateStream(context.Background(), streamConfig(opts.StreamName, subjectRoot+".>", opts.Storage, opts.DuplicateWindow))
		if err != nil {
			return nil, fmt.Errorf("failed to ensure stream: %w", err)
		}
	}

	return &jetStreamPublisher{js: js, opts: opts}, nil
}

func (p *jetStreamPublisher) Publish(ctx context.Context, subject string, data []byte, opts ...pubsub.PublishOption) error {
	start := time.Now()

	fullSubject := subject
	if p.opts.SubjectPrefix != "" {
		fullSubject = p.opts.SubjectPrefix + "." + subject
	}

	var publishOpts []jetstream.PublishOpt
	if p.opts.RetryAttempts > 0 {
		publishOpts = append(publishOpts, jetstream.WithRetryAttempts(p.opts.RetryAttempts))
	}
	if po := pubsub.ApplyPublishOptions(opts...); po.MsgID != "" {
		publishOpts = append(publishOpts, jetstream.WithMsgID(po.MsgID))
	}

	_, err := p.js.PublishMsg(ctx, &nats.Msg{Subject: fullSubject, Data: data}, publishOpts...)

	if p.opts.OnPublish != nil {
		p.opts.OnPublish(fullSubject, err, time.Since(start))
	}

	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", fullSubject, err)
	}
	return nil
}

// Close is a no-op; the connection is owned by the Provider.
func (p *jetStreamPublisher) Close() error {
	return nil
}

func streamConfig(name, subject string, storage pubsub.StorageType, duplicates time.Duration) jetstream.StreamConfig {
	st := jetstream.MemoryStorage
	if storage == pubsub.FileStorage {
		st = jetstream.FileStorage
	}
	return jetstream.StreamConfig{
		Name:       name,
		Subjects:   []string{subject},
		Storage:    st,
		Duplicates: duplicates,
	}
}
