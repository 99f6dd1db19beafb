package countersync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/syntrixbase/marketsearch/internal/core/pubsub"
	"github.com/syntrixbase/marketsearch/internal/core/storage/types"
)

// ReplayDeadLetters republishes up to limit dead letters, most recent first, and
// deletes each one once it is back on the stream. It returns the number replayed.
func ReplayDeadLetters(ctx context.Context, store types.DeadLetterStore, pub pubsub.Publisher, limit int) (int, error) {
	letters, err := store.List(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list dead letters: %w", err)
	}

	replayed := 0
	for _, letter := range letters {
		if err := pub.Publish(ctx, letter.Kind, letter.Payload); err != nil {
			return replayed, fmt.Errorf("replay %s: %w", letter.ID, err)
		}
		if err := store.Delete(ctx, letter.ID); err != nil {
			return replayed, fmt.Errorf("delete replayed %s: %w", letter.ID, err)
		}
		slog.Info("Replayed dead letter", "job_id", letter.ID, "kind", letter.Kind)
		replayed++
	}
	return replayed, nil
}
