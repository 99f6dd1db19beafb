package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/syntrixbase/marketsearch/internal/core/pubsub"
)

// Options configures the NATS connection.
type Options struct {
	URL           string
	Name          string
	MaxReconnects int
	ReconnectWait time.Duration
}

// connectFunc dials NATS. Injectable for testing.
type connectFunc func(opts Options) (*nats.Conn, error)

// jetStreamFactory creates JetStream on a connection. Injectable for testing.
type jetStreamFactory func(nc *nats.Conn) (JetStream, error)

var defaultConnect connectFunc = func(opts Options) (*nats.Conn, error) {
	natsOpts := []nats.Option{
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("Disconnected from NATS", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("Reconnected to NATS", "url", nc.ConnectedUrl())
		}),
	}
	if opts.Name != "" {
		natsOpts = append(natsOpts, nats.Name(opts.Name))
	}
	if opts.MaxReconnects != 0 {
		natsOpts = append(natsOpts, nats.MaxReconnects(opts.MaxReconnects))
	}
	if opts.ReconnectWait > 0 {
		natsOpts = append(natsOpts, nats.ReconnectWait(opts.ReconnectWait))
	}
	return nats.Connect(opts.URL, natsOpts...)
}

// Provider implements pubsub.Provider using NATS JetStream.
type Provider struct {
	opts             Options
	nc               *nats.Conn
	js               JetStream
	connect          connectFunc
	jetStreamFactory jetStreamFactory
}

var (
	_ pubsub.Provider    = (*Provider)(nil)
	_ pubsub.Connectable = (*Provider)(nil)
)

// NewProvider creates a provider. Call Connect before creating publishers or consumers.
func NewProvider(opts Options) *Provider {
	return &Provider{
		opts:             opts,
		connect:          defaultConnect,
		jetStreamFactory: NewJetStream,
	}
}

// Connect establishes the NATS connection and initializes JetStream.
func (p *Provider) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	nc, err := p.connect(p.opts)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", p.opts.URL, err)
	}

	js, err := p.jetStreamFactory(nc)
	if err != nil {
		if nc != nil {
			nc.Close()
		}
		return fmt.Errorf("failed to create JetStream: %w", err)
	}
	p.nc = nc
	p.js = js

	slog.Info("Connected to NATS", "url", p.opts.URL)
	return nil
}

func (p *Provider) NewPublisher(opts pubsub.PublisherOptions) (pubsub.Publisher, error) {
	if p.js == nil {
		return nil, fmt.Errorf("NATS not connected, call Connect first")
	}
	return NewPublisher(p.js, opts)
}

func (p *Provider) NewConsumer(opts pubsub.ConsumerOptions) (pubsub.Consumer, error) {
	if p.js == nil {
		return nil, fmt.Errorf("NATS not connected, call Connect first")
	}
	return NewConsumer(p.js, opts)
}

// Close drains and closes the NATS connection.
func (p *Provider) Close() error {
	p.js = nil
	if p.nc == nil {
		return nil
	}
	slog.Info("Closing NATS connection...")
	err := p.nc.Drain()
	if err != nil {
		p.nc.Close()
	}
	p.nc = nil
	return err
}
