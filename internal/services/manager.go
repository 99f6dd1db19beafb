// Package services wires the storage, transport, index writer, counter sync
// consumer and query engine of one process and runs them until shutdown.
package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/syntrixbase/marketsearch/internal/config"
	"github.com/syntrixbase/marketsearch/internal/core/pubsub"
	"github.com/syntrixbase/marketsearch/internal/core/storage"
	"github.com/syntrixbase/marketsearch/internal/countersync"
	"github.com/syntrixbase/marketsearch/internal/indexer"
	"github.com/syntrixbase/marketsearch/internal/jobs"
	"github.com/syntrixbase/marketsearch/internal/search"
	"github.com/syntrixbase/marketsearch/internal/server"
)

// Options selects what a process runs.
type Options struct {
	// RunConsumer starts the counter sync worker pool.
	RunConsumer bool
	// RunServer starts the operational HTTP server.
	RunServer bool
}

type jobConsumer interface {
	Start(ctx context.Context) error
}

// Manager owns the components of one process.
type Manager struct {
	cfg  *config.Config
	opts Options

	storageFactory storage.StorageFactory
	provider       pubsub.Provider
	publisher      pubsub.Publisher
	events         jobs.EventPublisher
	writer         *indexer.Writer
	engine         *search.Engine
	consumer       jobConsumer
	server         *server.Server

	wg       sync.WaitGroup
	draining atomic.Bool
}

var errDraining = errors.New("shutting down")

// health fails once Shutdown has begun so load balancers stop routing here.
func (m *Manager) health(context.Context) error {
	if m.draining.Load() {
		return errDraining
	}
	return nil
}

func NewManager(cfg *config.Config, opts Options) *Manager {
	return &Manager{cfg: cfg, opts: opts}
}

// Engine returns the query engine. Valid after Init.
func (m *Manager) Engine() *search.Engine { return m.engine }

// Events returns the job publisher used by domain writes. Valid after Init.
func (m *Manager) Events() jobs.EventPublisher { return m.events }

// Writer returns the index writer. Valid after Init.
func (m *Manager) Writer() *indexer.Writer { return m.writer }

// Storage returns the storage factory. Valid after Init.
func (m *Manager) Storage() storage.StorageFactory { return m.storageFactory }

// Publisher returns the raw job publisher, used to replay dead letters. Valid after Init.
func (m *Manager) Publisher() pubsub.Publisher { return m.publisher }

var _ jobConsumer = (*countersync.Consumer)(nil)
