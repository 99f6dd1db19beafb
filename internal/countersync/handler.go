// Package countersync applies counter and reindex jobs to the search index.
package countersync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/syntrixbase/marketsearch/internal/core/storage/types"
	"github.com/syntrixbase/marketsearch/internal/jobs"
	"github.com/syntrixbase/marketsearch/pkg/model"
)

// Reindexer rebuilds the index row of one entity.
type Reindexer interface {
	Reindex(ctx context.Context, family model.Family, id int64) error
}

// JobHandler applies one decoded job.
type JobHandler interface {
	Handle(ctx context.Context, job jobs.Job) error
}

// Handler applies jobs with single-row atomic updates. Increments are not
// idempotent: a redelivered visit counts twice.
type Handler struct {
	index    types.IndexStore
	writer   Reindexer
	ratings  types.RatingStore
	catalogs types.CatalogCounter
	events   jobs.EventPublisher
}

// NewHandler creates a Handler. events receives the rating-recomputed jobs
// produced by rating recalculation.
func NewHandler(index types.IndexStore, writer Reindexer, ratings types.RatingStore, catalogs types.CatalogCounter, events jobs.EventPublisher) *Handler {
	return &Handler{index: index, writer: writer, ratings: ratings, catalogs: catalogs, events: events}
}

func (h *Handler) Handle(ctx context.Context, job jobs.Job) error {
	switch j := job.(type) {
	case jobs.ReindexBusiness:
		return h.writer.Reindex(ctx, model.FamilyBusiness, j.ID)
	case jobs.ReindexCatalog:
		return h.writer.Reindex(ctx, model.FamilyCatalog, j.ID)
	case jobs.ReindexProduct:
		return h.writer.Reindex(ctx, model.FamilyProduct, j.ID)
	case jobs.VisitRecorded:
		return h.visit(ctx, j)
	case jobs.FollowChanged:
		_, err := h.index.AddCounter(ctx, model.FamilyBusiness, j.BusinessID, model.CounterFollowers, j.Action.Delta())
		return err
	case jobs.LikeChanged:
		return h.like(ctx, j)
	case jobs.RatingRecomputed:
		return h.index.SetRatingAverage(ctx, j.ProductID, j.RatingAverage)
	case jobs.RatingRecalculate:
		return h.recalculate(ctx, j)
	case jobs.ProductsCountChanged:
		return h.productsCount(ctx, j)
	}
	return &FatalError{Err: fmt.Errorf("%w: %T", jobs.ErrUnknownKind, job)}
}

func (h *Handler) visit(ctx context.Context, j jobs.VisitRecorded) error {
	owners, err := h.index.AddCounter(ctx, j.Scope, j.ID, model.CounterVisits, 1)
	if err != nil {
		return err
	}
	switch j.Scope {
	case model.FamilyCatalog:
		h.rollup(ctx, model.FamilyBusiness, owners.BusinessID, model.CounterCatalogVisitsTotal, 1)
	case model.FamilyProduct:
		h.rollup(ctx, model.FamilyCatalog, owners.CatalogID, model.CounterProductVisitsTotal, 1)
		h.rollup(ctx, model.FamilyBusiness, owners.BusinessID, model.CounterProductVisitsTotal, 1)
	}
	return nil
}

func (h *Handler) like(ctx context.Context, j jobs.LikeChanged) error {
	delta := j.Action.Delta()
	owners, err := h.index.AddCounter(ctx, model.FamilyProduct, j.ProductID, model.CounterLikes, delta)
	if err != nil {
		return err
	}
	h.rollup(ctx, model.FamilyCatalog, owners.CatalogID, model.CounterProductLikesTotal, delta)
	h.rollup(ctx, model.FamilyBusiness, owners.BusinessID, model.CounterProductLikesTotal, delta)
	return nil
}

// rollup updates an owner row after the child row was already updated. A
// failure is logged, not returned: retrying the job would count the child twice,
// and the owner's next reindex recomputes its rollups from the entity tables.
func (h *Handler) rollup(ctx context.Context, family model.Family, id int64, counter model.Counter, delta int64) {
	if id == 0 {
		return
	}
	if _, err := h.index.AddCounter(ctx, family, id, counter, delta); err != nil {
		slog.Warn("Rollup update failed", "family", family, "id", id, "counter", counter, "delta", delta, "error", err)
	}
}

func (h *Handler) recalculate(ctx context.Context, j jobs.RatingRecalculate) error {
	ratings, err := h.ratings.ActiveRatings(ctx, j.ProductID)
	if err != nil {
		return fmt.Errorf("load ratings of product %d: %w", j.ProductID, err)
	}
	average := model.AverageStars(ratings)

	err = h.ratings.SetProductRatingAverage(ctx, j.ProductID, average)
	if errors.Is(err, model.ErrNotFound) {
		slog.Info("Skipping rating recalculation of missing product", "product_id", j.ProductID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("store rating average of product %d: %w", j.ProductID, err)
	}
	return h.events.RatingRecomputed(ctx, j.ProductID, average)
}

func (h *Handler) productsCount(ctx context.Context, j jobs.ProductsCountChanged) error {
	err := h.catalogs.AdjustProductsCount(ctx, j.CatalogID, j.Action.Delta())
	if errors.Is(err, model.ErrNotFound) {
		slog.Info("Skipping products count change of missing catalog", "catalog_id", j.CatalogID)
		return nil
	}
	return err
}
