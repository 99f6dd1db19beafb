package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	_ "github.com/lib/pq"
	"github.com/syntrixbase/marketsearch/internal/core/storage/config"
	"github.com/syntrixbase/marketsearch/internal/core/storage/memory"
	"github.com/syntrixbase/marketsearch/internal/core/storage/mongo"
	"github.com/syntrixbase/marketsearch/internal/core/storage/postgres"
	"github.com/syntrixbase/marketsearch/internal/core/storage/types"
)

// StorageFactory opens the configured backends and hands out the stores built on them.
type StorageFactory interface {
	Index() types.IndexStore
	Ranker() types.Ranker
	Sources() types.SourceReader
	Hydrator() types.Hydrator
	Ratings() types.RatingStore
	Catalogs() types.CatalogCounter

	// DeadLetters returns nil when dead letters are disabled.
	DeadLetters() types.DeadLetterStore

	// Migrate creates the index tables. It is a no-op for the memory backend.
	Migrate(ctx context.Context) error

	// Close closes all underlying providers and connections.
	Close() error
}

// Dependency injection for testing
var newMongoProvider = func(ctx context.Context, uri, dbName string) (mongoProvider, error) {
	return mongo.NewProvider(ctx, uri, dbName)
}

// Dependency injection for postgres
var newPostgresDB = func(dsn string, cfg config.PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return db, nil
}

type factory struct {
	primary *sql.DB
	replica *sql.DB
	mongo   mongoProvider
	mem     *memory.Store

	index    types.IndexStore
	ranker   types.Ranker
	sources  types.SourceReader
	hydrator types.Hydrator
	ratings  types.RatingStore
	catalogs types.CatalogCounter
	dead     types.DeadLetterStore

	mu sync.Mutex
}

// NewFactory opens the backend selected by cfg. language is the text search
// configuration used by the Postgres index.
func NewFactory(ctx context.Context, cfg config.Config, language string) (StorageFactory, error) {
	f := &factory{}
	success := false
	defer func() {
		if !success {
			f.Close()
		}
	}()

	switch cfg.Backend {
	case config.BackendMemory:
		store := memory.NewStore()
		f.mem = store
		f.index, f.ranker, f.sources, f.hydrator, f.ratings, f.catalogs = store, store, store, store, store, store
	case config.BackendPostgres, "":
		if err := f.openPostgres(ctx, cfg.Postgres, language); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Backend)
	}

	if cfg.DeadLetter.Enabled {
		p, err := newMongoProvider(ctx, cfg.DeadLetter.Mongo.URI, cfg.DeadLetter.Mongo.DatabaseName)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to dead letter store: %w", err)
		}
		f.mongo = p
		f.dead = mongo.NewDeadLetterStore(p.Database(), cfg.DeadLetter.Collection, cfg.DeadLetter.Retention)
		if err := f.dead.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure dead letter indexes: %w", err)
		}
	}

	if cfg.Backend != config.BackendMemory && cfg.Postgres.EnsureSchema {
		if err := f.Migrate(ctx); err != nil {
			return nil, err
		}
	}

	success = true
	return f, nil
}

func (f *factory) openPostgres(ctx context.Context, cfg config.PostgresConfig, language string) error {
	db, err := newPostgresDB(cfg.DSN, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	f.primary = db
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	reads := db
	if cfg.ReplicaDSN != "" {
		replica, err := newPostgresDB(cfg.ReplicaDSN, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres replica: %w", err)
		}
		f.replica = replica
		if err := replica.PingContext(ctx); err != nil {
			return fmt.Errorf("failed to ping postgres replica: %w", err)
		}
		reads = replica
		slog.Info("Ranking and hydration reads use the postgres replica")
	}

	writes := postgres.NewEntityStore(db)
	f.index = postgres.NewIndexStore(db, language)
	f.sources = writes
	f.ratings = writes
	f.catalogs = writes
	f.ranker = postgres.NewRanker(reads, language)
	f.hydrator = postgres.NewEntityStore(reads)
	return nil
}

func (f *factory) Migrate(ctx context.Context) error {
	if f.primary == nil {
		return nil
	}
	if err := postgres.EnsureSchema(ctx, f.primary); err != nil {
		return fmt.Errorf("failed to ensure index schema: %w", err)
	}
	return nil
}

func (f *factory) Index() types.IndexStore            { return f.index }
func (f *factory) Ranker() types.Ranker               { return f.ranker }
func (f *factory) Sources() types.SourceReader        { return f.sources }
func (f *factory) Hydrator() types.Hydrator           { return f.hydrator }
func (f *factory) Ratings() types.RatingStore         { return f.ratings }
func (f *factory) Catalogs() types.CatalogCounter     { return f.catalogs }
func (f *factory) DeadLetters() types.DeadLetterStore { return f.dead }

func (f *factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	if f.mongo != nil {
		if err := f.mongo.Close(context.Background()); err != nil {
			errs = append(errs, err)
		}
		f.mongo = nil
	}
	for _, db := range []*sql.DB{f.replica, f.primary} {
		if db == nil {
			continue
		}
		if err := db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	f.primary, f.replica = nil, nil
	if f.mem != nil {
		if err := f.mem.Close(); err != nil {
			errs = append(errs, err)
		}
		f.mem = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing providers: %w", errors.Join(errs...))
	}
	return nil
}
