package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syntrixbase/marketsearch/internal/config"
	"github.com/syntrixbase/marketsearch/internal/core/pubsub"
	pubsubconfig "github.com/syntrixbase/marketsearch/internal/core/pubsub/config"
	"github.com/syntrixbase/marketsearch/internal/core/storage"
	storageconfig "github.com/syntrixbase/marketsearch/internal/core/storage/config"
	"github.com/syntrixbase/marketsearch/internal/core/storage/memory"
	"github.com/syntrixbase/marketsearch/internal/jobs"
	"github.com/syntrixbase/marketsearch/internal/search"
	services "github.com/syntrixbase/marketsearch/internal/services/config"
	"github.com/syntrixbase/marketsearch/pkg/model"
)

func standaloneConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Deployment.Mode = services.ModeStandalone
	cfg.Storage.Backend = storageconfig.BackendMemory
	cfg.Pubsub.Engine = pubsubconfig.EngineMemory
	cfg.CounterSync.NumWorkers = 4
	cfg.CounterSync.InitialBackoff = 10 * time.Millisecond
	cfg.CounterSync.MaxBackoff = 50 * time.Millisecond
	cfg.Server.Addr = freeAddr(t)
	return cfg
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

// closeTracker wraps a factory and records Close.
type closeTracker struct {
	storage.StorageFactory
	closed int
}

func (c *closeTracker) Close() error {
	c.closed++
	return c.StorageFactory.Close()
}

func TestManager_InitFailures(t *testing.T) {
	origStorage, origProvider := storageFactoryFactory, providerFactory
	t.Cleanup(func() { storageFactoryFactory, providerFactory = origStorage, origProvider })

	t.Run("storage", func(t *testing.T) {
		storageFactoryFactory = func(context.Context, *config.Config) (storage.StorageFactory, error) {
			return nil, errors.New("connection refused")
		}
		err := NewManager(standaloneConfig(t), Options{}).Init(context.Background())
		assert.ErrorContains(t, err, "failed to initialize storage")
	})

	t.Run("pubsub closes storage", func(t *testing.T) {
		var tracker *closeTracker
		storageFactoryFactory = func(ctx context.Context, cfg *config.Config) (storage.StorageFactory, error) {
			sf, err := origStorage(ctx, cfg)
			tracker = &closeTracker{StorageFactory: sf}
			return tracker, err
		}
		providerFactory = func(context.Context, *config.Config) (pubsub.Provider, error) {
			return nil, errors.New("no servers available")
		}

		err := NewManager(standaloneConfig(t), Options{}).Init(context.Background())
		assert.ErrorContains(t, err, "failed to initialize pubsub")
		assert.Equal(t, 1, tracker.closed)
	})
}

func TestManager_UnknownEngine(t *testing.T) {
	cfg := standaloneConfig(t)
	cfg.Pubsub.Engine = "kafka"
	_, err := providerFactory(context.Background(), cfg)
	assert.Error(t, err)
}

func TestManager_ServerServesMetricsAndHealth(t *testing.T) {
	cfg := standaloneConfig(t)
	m := NewManager(cfg, Options{RunServer: true})
	require.NoError(t, m.Init(context.Background()))

	bgCtx, cancel := context.WithCancel(context.Background())
	m.Start(bgCtx)

	get := func(path string) (int, string) {
		resp, err := http.Get("http://" + cfg.Server.Addr + path)
		if err != nil {
			return 0, ""
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(body)
	}

	assert.Eventually(t, func() bool {
		code, body := get("/healthz")
		return code == http.StatusOK && body == "ok"
	}, 2*time.Second, 20*time.Millisecond)

	code, body := get("/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "go_goroutines")

	m.draining.Store(true)
	code, _ = get("/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()
	m.Shutdown(shutdownCtx)
	assert.Nil(t, m.Storage())
}

func TestManager_Pipeline(t *testing.T) {
	cfg := standaloneConfig(t)
	m := NewManager(cfg, Options{RunConsumer: true})
	require.NoError(t, m.Init(context.Background()))

	store, ok := m.Storage().Index().(*memory.Store)
	require.True(t, ok)
	store.PutBusiness(&model.Business{ID: 1, Name: "Acme Bakery", Description: "Fresh bread daily"})
	store.PutCatalog(&model.Catalog{ID: 10, BusinessID: 1, Title: "Breads"})
	for i := int64(1); i <= 3; i++ {
		store.PutProduct(&model.Product{ID: 100 + i, CatalogID: 10, BusinessID: 1, Title: fmt.Sprintf("Sourdough loaf %d", i)})
	}

	bgCtx, cancel := context.WithCancel(context.Background())
	m.Start(bgCtx)
	t.Cleanup(func() {
		cancel()
		ctx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		m.Shutdown(ctx)
	})

	ctx := context.Background()
	events := m.Events()
	require.NoError(t, events.EntityCreated(ctx, model.FamilyBusiness, 1))
	require.NoError(t, events.EntityCreated(ctx, model.FamilyCatalog, 10))
	for i := int64(1); i <= 3; i++ {
		require.NoError(t, events.EntityCreated(ctx, model.FamilyProduct, 100+i))
	}

	engine := m.Engine()
	page := search.Pagination{Page: 1, Limit: 10, SearchText: "sourdough"}
	require.Eventually(t, func() bool {
		_, err := store.Get(ctx, model.FamilyBusiness, 1)
		return err == nil && engine.Search(ctx, page, model.ScopeAll).Total == 4
	}, 5*time.Second, 20*time.Millisecond)

	for i := 0; i < 10; i++ {
		require.NoError(t, events.VisitRecorded(ctx, model.FamilyProduct, 101))
	}
	require.NoError(t, events.LikeChanged(ctx, 102, jobs.Like))
	require.NoError(t, events.FollowChanged(ctx, 1, jobs.Follow))

	require.Eventually(t, func() bool {
		p, err := store.Get(ctx, model.FamilyProduct, 101)
		b, err2 := store.Get(ctx, model.FamilyBusiness, 1)
		return err == nil && err2 == nil &&
			p.Counters.Visits == 10 &&
			b.Counters.ProductVisitsTotal == 10 &&
			b.Counters.ProductLikesTotal == 1 &&
			b.Counters.Followers == 1
	}, 5*time.Second, 20*time.Millisecond)

	featured := engine.FeaturedProducts(ctx, 1, 1)
	require.Len(t, featured.Items, 1)
	assert.Equal(t, int64(101), featured.Items[0].Entity.EntityID())
	assert.Equal(t, 3, featured.Total)

	store.SoftDelete(model.FamilyProduct, 103)
	res := engine.Search(ctx, search.Pagination{Page: 1, Limit: 10, SearchText: "sourdough"}, model.ScopeProducts)
	assert.Equal(t, 2, res.Total)
	assert.Len(t, res.Items, 2)
}
