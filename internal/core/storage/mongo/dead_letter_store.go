package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/syntrixbase/marketsearch/internal/core/storage/types"
	"github.com/syntrixbase/marketsearch/pkg/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultDeadLetterCollection = "dead_letters"

type deadLetterStore struct {
	coll      *mongo.Collection
	retention time.Duration
}

// NewDeadLetterStore stores dead letters in the given collection. A positive retention
// lets MongoDB expire letters that long after they failed.
func NewDeadLetterStore(db *mongo.Database, collectionName string, retention time.Duration) types.DeadLetterStore {
	if collectionName == "" {
		collectionName = defaultDeadLetterCollection
	}
	return &deadLetterStore{
		coll:      db.Collection(collectionName),
		retention: retention,
	}
}

func (s *deadLetterStore) Put(ctx context.Context, letter *types.DeadLetter) error {
	if letter.FailedAt.IsZero() {
		letter.FailedAt = time.Now()
	}
	_, err := s.coll.InsertOne(ctx, letter)
	if mongo.IsDuplicateKeyError(err) {
		return nil // Already recorded
	}
	return err
}

func (s *deadLetterStore) List(ctx context.Context, limit int) ([]*types.DeadLetter, error) {
	opts := options.Find().SetSort(bson.D{{Key: "failed_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var letters []*types.DeadLetter
	if err := cursor.All(ctx, &letters); err != nil {
		return nil, err
	}
	return letters, nil
}

func (s *deadLetterStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("dead letter %s: %w", id, model.ErrNotFound)
	}
	return nil
}

func (s *deadLetterStore) EnsureIndexes(ctx context.Context) error {
	idx := mongo.IndexModel{Keys: bson.D{{Key: "failed_at", Value: -1}}}
	if s.retention > 0 {
		idx.Options = options.Index().SetExpireAfterSeconds(int32(s.retention.Seconds()))
	}
	if _, err := s.coll.Indexes().CreateOne(ctx, idx); err != nil {
		return err
	}

	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "kind", Value: 1}, {Key: "failed_at", Value: -1}},
	})
	return err
}
