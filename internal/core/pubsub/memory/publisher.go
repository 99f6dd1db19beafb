package memory

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/syntrixbase/marketsearch/internal/core/pubsub"
)

type memoryPublisher struct {
	broker *broker
	opts   pubsub.PublisherOptions
	closed atomic.Bool
}

func (p *memoryPublisher) Publish(ctx context.Context, subject string, data []byte, opts ...pubsub.PublishOption) error {
	if p.closed.Load() {
		return ErrEngineClosed
	}

	start := time.Now()

	fullSubject := subject
	if p.opts.SubjectPrefix != "" {
		fullSubject = p.opts.SubjectPrefix + "." + subject
	}

	po := pubsub.ApplyPublishOptions(opts...)
	err := p.broker.publish(ctx, fullSubject, data, po.MsgID, p.opts.DuplicateWindow)

	if p.opts.OnPublish != nil {
		p.opts.OnPublish(fullSubject, err, time.Since(start))
	}

	return err
}

func (p *memoryPublisher) Close() error {
	p.closed.Store(true)
	return nil
}
