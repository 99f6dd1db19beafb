package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/syntrixbase/marketsearch/internal/config"
	"github.com/syntrixbase/marketsearch/internal/core/pubsub"
	pubsubconfig "github.com/syntrixbase/marketsearch/internal/core/pubsub/config"
	"github.com/syntrixbase/marketsearch/internal/core/pubsub/memory"
	natspubsub "github.com/syntrixbase/marketsearch/internal/core/pubsub/nats"
	"github.com/syntrixbase/marketsearch/internal/core/storage"
	"github.com/syntrixbase/marketsearch/internal/countersync"
	"github.com/syntrixbase/marketsearch/internal/enhancer"
	"github.com/syntrixbase/marketsearch/internal/indexer"
	"github.com/syntrixbase/marketsearch/internal/jobs"
	"github.com/syntrixbase/marketsearch/internal/search"
	"github.com/syntrixbase/marketsearch/internal/server"
)

// Dependency injection for testing
var storageFactoryFactory = func(ctx context.Context, cfg *config.Config) (storage.StorageFactory, error) {
	return storage.NewFactory(ctx, cfg.Storage, cfg.Search.Language)
}

var providerFactory = func(ctx context.Context, cfg *config.Config) (pubsub.Provider, error) {
	switch cfg.Pubsub.EngineFor(cfg.Deployment.Mode) {
	case pubsubconfig.EngineMemory:
		return memory.New(), nil
	case pubsubconfig.EngineNATS:
		p := natspubsub.NewProvider(natspubsub.Options{
			URL:           cfg.Pubsub.NATS.URL,
			Name:          cfg.Pubsub.NATS.Name,
			MaxReconnects: cfg.Pubsub.NATS.MaxReconnects,
			ReconnectWait: cfg.Pubsub.NATS.ReconnectWait,
		})
		if err := p.Connect(ctx); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported pubsub engine: %s", cfg.Pubsub.Engine)
	}
}

// Init connects the backends and builds every component. On error, whatever
// was opened is closed again.
func (m *Manager) Init(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			m.closeBackends()
		}
	}()

	m.storageFactory, err = storageFactoryFactory(ctx, m.cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	slog.Info("Connected to storage", "backend", m.cfg.Storage.Backend)

	m.provider, err = providerFactory(ctx, m.cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize pubsub: %w", err)
	}

	m.publisher, err = m.provider.NewPublisher(m.cfg.Pubsub.PublisherOptions())
	if err != nil {
		return fmt.Errorf("failed to create job publisher: %w", err)
	}
	m.events = jobs.NewEventPublisher(m.publisher)

	sf := m.storageFactory
	m.writer = indexer.NewWriter(sf.Index(), sf.Sources(), enhancer.New(m.cfg.Enhancer), m.cfg.Enhancer.Timeout)
	m.engine = search.NewEngine(sf.Ranker(), sf.Hydrator(), m.cfg.Search)

	if m.opts.RunConsumer {
		if err = m.initConsumer(); err != nil {
			return err
		}
	}
	if m.opts.RunServer {
		m.initServer()
	}
	return nil
}

func (m *Manager) initConsumer() error {
	cs := m.cfg.CounterSync
	c, err := m.provider.NewConsumer(pubsub.ConsumerOptions{
		StreamName:     m.cfg.Pubsub.Stream,
		ConsumerName:   cs.ConsumerName,
		FilterSubject:  m.cfg.Pubsub.Stream + ".>",
		ChannelBufSize: cs.ChannelBuf,
		Storage:        m.cfg.Pubsub.StorageType(),
		AckWait:        cs.AckWait,
		MaxAckPending:  cs.MaxAckPending,
	})
	if err != nil {
		return fmt.Errorf("failed to create job consumer: %w", err)
	}

	sf := m.storageFactory
	handler := countersync.NewHandler(sf.Index(), m.writer, sf.Ratings(), sf.Catalogs(), m.events)
	m.consumer = countersync.NewConsumer(c, handler, sf.DeadLetters(), cs)
	slog.Info("Initialized counter sync consumer", "workers", cs.NumWorkers, "stream", m.cfg.Pubsub.Stream)
	return nil
}

func (m *Manager) initServer() {
	m.server = server.New(m.cfg.Server, slog.Default(), m.health)
}
