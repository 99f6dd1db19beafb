package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/syntrixbase/marketsearch/internal/core/pubsub"
	"github.com/syntrixbase/marketsearch/internal/metrics"
	"github.com/syntrixbase/marketsearch/pkg/model"
)

// EventPublisher is what domain write operations call after their entity write
// commits. Each method publishes one job.
type EventPublisher interface {
	EntityCreated(ctx context.Context, family model.Family, id int64) error
	EntityUpdated(ctx context.Context, family model.Family, id int64) error
	VisitRecorded(ctx context.Context, scope model.Family, id int64) error
	FollowChanged(ctx context.Context, businessID int64, action FollowAction) error
	LikeChanged(ctx context.Context, productID int64, action LikeAction) error
	RatingChanged(ctx context.Context, productID int64) error
	RatingRecomputed(ctx context.Context, productID int64, average float64) error
	ProductsCountChanged(ctx context.Context, catalogID int64, action CountAction, actor *ActorContext) error

	// Publish sends any job. key is an optional idempotency key.
	Publish(ctx context.Context, job Job, key string) error
	Close() error
}

type eventPublisher struct {
	pub pubsub.Publisher
}

// NewEventPublisher publishes jobs on pub. Subjects are the job kinds; the
// stream prefix is added by pub.
func NewEventPublisher(pub pubsub.Publisher) EventPublisher {
	return &eventPublisher{pub: pub}
}

func (p *eventPublisher) Publish(ctx context.Context, job Job, key string) error {
	data, env, err := Encode(job, key)
	if err != nil {
		metrics.JobsPublished.WithLabelValues(string(job.Kind()), metrics.OutcomeError).Inc()
		return err
	}

	err = p.pub.Publish(ctx, string(env.Kind), data, pubsub.WithMsgID(env.MsgID()))
	metrics.JobsPublished.WithLabelValues(string(env.Kind), metrics.Result(err)).Inc()
	if err != nil {
		slog.Error("Failed to publish job", "kind", env.Kind, "id", env.ID, "error", err)
		return fmt.Errorf("publish %s: %w", env.Kind, err)
	}
	slog.Debug("Published job", "kind", env.Kind, "id", env.ID, "key", env.Key)
	return nil
}

func (p *eventPublisher) reindex(ctx context.Context, family model.Family, id int64) error {
	job, err := Reindex(family, id)
	if err != nil {
		return err
	}
	return p.Publish(ctx, job, "")
}

func (p *eventPublisher) EntityCreated(ctx context.Context, family model.Family, id int64) error {
	return p.reindex(ctx, family, id)
}

func (p *eventPublisher) EntityUpdated(ctx context.Context, family model.Family, id int64) error {
	return p.reindex(ctx, family, id)
}

func (p *eventPublisher) VisitRecorded(ctx context.Context, scope model.Family, id int64) error {
	return p.Publish(ctx, VisitRecorded{Scope: scope, ID: id}, "")
}

func (p *eventPublisher) FollowChanged(ctx context.Context, businessID int64, action FollowAction) error {
	return p.Publish(ctx, FollowChanged{BusinessID: businessID, Action: action}, "")
}

func (p *eventPublisher) LikeChanged(ctx context.Context, productID int64, action LikeAction) error {
	return p.Publish(ctx, LikeChanged{ProductID: productID, Action: action}, "")
}

func (p *eventPublisher) RatingChanged(ctx context.Context, productID int64) error {
	return p.Publish(ctx, RatingRecalculate{ProductID: productID}, "")
}

func (p *eventPublisher) RatingRecomputed(ctx context.Context, productID int64, average float64) error {
	return p.Publish(ctx, RatingRecomputed{ProductID: productID, RatingAverage: average}, "")
}

func (p *eventPublisher) ProductsCountChanged(ctx context.Context, catalogID int64, action CountAction, actor *ActorContext) error {
	return p.Publish(ctx, ProductsCountChanged{CatalogID: catalogID, Action: action, ActorContext: actor}, "")
}

// Close releases the underlying publisher.
func (p *eventPublisher) Close() error {
	return p.pub.Close()
}
