package mongo

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syntrixbase/marketsearch/internal/core/storage/types"
	"github.com/syntrixbase/marketsearch/pkg/model"
	"go.mongodb.org/mongo-driver/mongo"
)

type testEnv struct {
	Provider *Provider
	DB       *mongo.Database
}

// setupTestEnv connects to the MongoDB named by MARKETSEARCH_TEST_MONGO_URI and
// creates a throwaway database. The test is skipped when the variable is unset.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	uri := os.Getenv("MARKETSEARCH_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("MARKETSEARCH_TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbName := fmt.Sprintf("marketsearch_test_%d", time.Now().UnixNano())
	p, err := NewProvider(ctx, uri, dbName)
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = p.Database().Drop(ctx)
		_ = p.Close(ctx)
	})

	return &testEnv{Provider: p, DB: p.Database()}
}

func TestDeadLetterStore_Lifecycle(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	store := NewDeadLetterStore(env.DB, "", 24*time.Hour)
	require.NoError(t, store.EnsureIndexes(ctx))

	older := &types.DeadLetter{
		ID:       "job-1",
		Kind:     "visit-recorded",
		Subject:  "MARKETSEARCH_JOBS.visit-recorded",
		Payload:  []byte(`{"scope":"PRODUCT","id":1}`),
		Error:    "index row missing",
		Attempts: 5,
		FailedAt: time.Now().Add(-time.Minute),
	}
	newer := &types.DeadLetter{ID: "job-2", Kind: "like-changed", Attempts: 5}

	require.NoError(t, store.Put(ctx, older))
	require.NoError(t, store.Put(ctx, newer))
	assert.False(t, newer.FailedAt.IsZero())

	// Recording the same job twice is accepted.
	require.NoError(t, store.Put(ctx, older))

	letters, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, letters, 2)
	assert.Equal(t, "job-2", letters[0].ID)
	assert.Equal(t, "job-1", letters[1].ID)
	assert.Equal(t, older.Payload, letters[1].Payload)

	letters, err = store.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, letters, 1)

	require.NoError(t, store.Delete(ctx, "job-1"))
	assert.ErrorIs(t, store.Delete(ctx, "job-1"), model.ErrNotFound)
}

func TestNewProvider_BadURI(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := NewProvider(ctx, "not-a-mongo-uri", "db")
	assert.Error(t, err)
}
