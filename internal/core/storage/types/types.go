package types

import (
	"context"
	"time"

	"github.com/syntrixbase/marketsearch/pkg/model"
)

// IndexStore is the write side of the per-family index tables.
// Every method touches a single row with a single atomic statement.
type IndexStore interface {
	// Upsert inserts the row, or replaces its text and counters when a row for the
	// same (family, entity id) already exists.
	Upsert(ctx context.Context, row *model.IndexRow) error

	// AddCounter adds delta to one counter column of a row, flooring the result at zero.
	// It returns the owner ids stored on the row so callers can update rollups.
	// Returns model.ErrIndexRowMissing if the row does not exist.
	AddCounter(ctx context.Context, family model.Family, id int64, counter model.Counter, delta int64) (model.Owners, error)

	// SetRatingAverage overwrites the rating average of a product row.
	// Returns model.ErrIndexRowMissing if the row does not exist.
	SetRatingAverage(ctx context.Context, productID int64, average float64) error

	// Get returns a single row. Returns model.ErrIndexRowMissing if absent.
	Get(ctx context.Context, family model.Family, id int64) (*model.IndexRow, error)
}

// Ranker is the read side of the index tables used by the query engine.
// All methods exclude rows whose source entity, or any of its parents, is soft-deleted.
type Ranker interface {
	// Rank scores rows of one family against the query, best first.
	Rank(ctx context.Context, family model.Family, query string, limit, offset int) ([]model.Hit, error)

	// Count returns the number of live rows of one family matching the query.
	Count(ctx context.Context, family model.Family, query string) (int, error)

	// Featured ranks live rows of one family by the family's weighted counter formula.
	Featured(ctx context.Context, family model.Family, limit, offset int) ([]model.Hit, error)

	// CountLive returns the number of live rows of one family.
	CountLive(ctx context.Context, family model.Family) (int, error)
}

// SourceReader loads full entity snapshots, including related text and authoritative
// counts, for building index rows. Returns model.ErrNotFound for missing or deleted entities.
type SourceReader interface {
	Business(ctx context.Context, id int64) (*model.Business, error)
	Catalog(ctx context.Context, id int64) (*model.Catalog, error)
	Product(ctx context.Context, id int64) (*model.Product, error)
}

// Hydrator batch-loads live entities of one family.
// Ids that do not resolve are absent from the returned map.
type Hydrator interface {
	Hydrate(ctx context.Context, family model.Family, ids []int64) (map[int64]model.Entity, error)
}

// RatingStore reads the ratings of a product and persists its authoritative average.
type RatingStore interface {
	ActiveRatings(ctx context.Context, productID int64) ([]model.Rating, error)
	SetProductRatingAverage(ctx context.Context, productID int64, average float64) error
}

// CatalogCounter adjusts the products counter held on the catalog entity itself.
type CatalogCounter interface {
	// AdjustProductsCount adds delta to the catalog's products count, flooring at zero.
	AdjustProductsCount(ctx context.Context, catalogID int64, delta int64) error
}

// DeadLetter is a job that exhausted its delivery attempts.
type DeadLetter struct {
	ID       string    `json:"id" bson:"_id"`
	Kind     string    `json:"kind" bson:"kind"`
	Subject  string    `json:"subject" bson:"subject"`
	Payload  []byte    `json:"payload" bson:"payload"`
	Error    string    `json:"error" bson:"error"`
	Attempts uint64    `json:"attempts" bson:"attempts"`
	FailedAt time.Time `json:"failedAt" bson:"failed_at"`
}

// DeadLetterStore keeps dead letters for inspection and manual replay.
type DeadLetterStore interface {
	// Put records a dead letter. Recording the same id twice is not an error.
	Put(ctx context.Context, letter *DeadLetter) error
	// List returns the most recent dead letters first.
	List(ctx context.Context, limit int) ([]*DeadLetter, error)
	// Delete removes a dead letter, typically after it was replayed.
	Delete(ctx context.Context, id string) error
	// EnsureIndexes creates the indexes the store relies on.
	EnsureIndexes(ctx context.Context) error
}
