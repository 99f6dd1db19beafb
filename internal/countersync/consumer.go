package countersync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/syntrixbase/marketsearch/internal/core/pubsub"
	"github.com/syntrixbase/marketsearch/internal/core/storage/types"
	"github.com/syntrixbase/marketsearch/internal/countersync/config"
	"github.com/syntrixbase/marketsearch/internal/jobs"
	"github.com/syntrixbase/marketsearch/internal/metrics"
)

// delivery is a decoded message on its way to a worker.
type delivery struct {
	msg pubsub.Message
	env *jobs.Envelope
	job jobs.Job
}

// Consumer reads jobs from the broker and applies them on a sharded worker pool.
type Consumer struct {
	consumer    pubsub.Consumer
	handler     JobHandler
	deadLetters types.DeadLetterStore
	cfg         config.Config

	workerChans []chan delivery
	wg          sync.WaitGroup

	closing       atomic.Bool
	inFlightCount atomic.Int32
}

// NewConsumer creates a Consumer. deadLetters may be nil, in which case jobs
// that exhaust their attempts are only logged.
func NewConsumer(consumer pubsub.Consumer, handler JobHandler, deadLetters types.DeadLetterStore, cfg config.Config) *Consumer {
	cfg.ApplyDefaults()
	return &Consumer{
		consumer:    consumer,
		handler:     handler,
		deadLetters: deadLetters,
		cfg:         cfg,
	}
}

// Start consumes until ctx is cancelled, then drains in-flight work.
func (c *Consumer) Start(ctx context.Context) error {
	msgCh, err := c.consumer.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	c.workerChans = make([]chan delivery, c.cfg.NumWorkers)
	for i := range c.workerChans {
		c.workerChans[i] = make(chan delivery, c.cfg.ChannelBuf)
		c.wg.Add(1)
		go c.workerLoop(ctx, i)
	}

	slog.Info("Counter sync consumer started", "num_workers", c.cfg.NumWorkers)

	for msg := range msgCh {
		c.dispatch(msg)
	}

	slog.Info("Stopping counter sync consumer...")
	c.closing.Store(true)

	drainCtx, drainCancel := context.WithTimeout(context.Background(), c.cfg.DrainTimeout)
	defer drainCancel()
	c.waitForDrain(drainCtx)

	for _, ch := range c.workerChans {
		close(ch)
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), c.cfg.ShutdownTimeout)
	defer shutdownCancel()

	select {
	case <-done:
		slog.Info("All counter sync workers stopped")
	case <-shutdownCtx.Done():
		slog.Warn("Shutdown timeout exceeded, some workers may still be running")
	}
	return nil
}

func (c *Consumer) waitForDrain(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if c.inFlightCount.Load() == 0 {
			return
		}
		select {
		case <-ctx.Done():
			slog.Warn("Drain timeout, messages still in-flight", "remaining", c.inFlightCount.Load())
			return
		case <-ticker.C:
		}
	}
}

func (c *Consumer) dispatch(msg pubsub.Message) {
	c.inFlightCount.Add(1)
	defer c.inFlightCount.Add(-1)

	if c.closing.Load() {
		_ = msg.Nak()
		return
	}

	job, env, err := jobs.Decode(msg.Data())
	if err != nil {
		kind := "unknown"
		if env != nil {
			kind = string(env.Kind)
		}
		slog.Warn("Dropping undecodable job", "subject", msg.Subject(), "kind", kind, "error", err)
		metrics.JobsProcessed.WithLabelValues(kind, metrics.OutcomeDropped).Inc()
		_ = msg.Term()
		return
	}

	idx := int(xxhash.Sum64String(job.ShardKey()) % uint64(len(c.workerChans)))
	c.workerChans[idx] <- delivery{msg: msg, env: env, job: job}
}

func (c *Consumer) workerLoop(ctx context.Context, id int) {
	defer c.wg.Done()

	for d := range c.workerChans[id] {
		err := c.process(ctx, d)
		kind := string(d.env.Kind)
		if err == nil {
			metrics.JobsProcessed.WithLabelValues(kind, metrics.OutcomeOK).Inc()
			_ = d.msg.Ack()
			continue
		}

		if IsFatal(err) {
			slog.Warn("Dropping job that cannot succeed", "worker_id", id, "kind", kind, "job_id", d.env.ID, "error", err)
			metrics.JobsProcessed.WithLabelValues(kind, metrics.OutcomeDropped).Inc()
			_ = d.msg.Term()
			continue
		}

		md, metaErr := d.msg.Metadata()
		if metaErr != nil {
			slog.Error("Failed to get message metadata", "error", metaErr)
			_ = d.msg.Nak()
			continue
		}

		attempt := int(md.NumDelivered)
		if attempt >= c.cfg.MaxAttempts {
			slog.Warn("Max attempts reached, dead-lettering job",
				"kind", kind, "job_id", d.env.ID, "attempts", attempt, "error", err)
			c.deadLetter(ctx, d, attempt, err)
			metrics.JobsProcessed.WithLabelValues(kind, metrics.OutcomeDeadLetter).Inc()
			_ = d.msg.Term()
			continue
		}

		backoff := c.cfg.Backoff(attempt)
		slog.Info("Retrying job", "kind", kind, "job_id", d.env.ID, "backoff", backoff,
			"attempt", attempt+1, "max_attempts", c.cfg.MaxAttempts, "error", err)
		metrics.JobsProcessed.WithLabelValues(kind, metrics.OutcomeRetry).Inc()
		_ = d.msg.NakWithDelay(backoff)
	}
}

func (c *Consumer) process(ctx context.Context, d delivery) error {
	start := time.Now()
	jobCtx, cancel := context.WithTimeout(ctx, c.cfg.JobTimeout)
	defer cancel()

	err := c.handler.Handle(jobCtx, d.job)
	metrics.JobDuration.WithLabelValues(string(d.env.Kind)).Observe(time.Since(start).Seconds())
	return err
}

func (c *Consumer) deadLetter(ctx context.Context, d delivery, attempts int, cause error) {
	if c.deadLetters == nil {
		return
	}
	// The consumer context may already be cancelled during shutdown.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	err := c.deadLetters.Put(ctx, &types.DeadLetter{
		ID:       d.env.ID,
		Kind:     string(d.env.Kind),
		Subject:  d.msg.Subject(),
		Payload:  d.msg.Data(),
		Error:    cause.Error(),
		Attempts: uint64(attempts),
	})
	if err != nil {
		slog.Error("Failed to record dead letter", "job_id", d.env.ID, "error", err)
	}
}
