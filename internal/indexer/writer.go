// Package indexer keeps index rows in step with their source entities.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/syntrixbase/marketsearch/internal/core/storage/types"
	"github.com/syntrixbase/marketsearch/internal/enhancer"
	"github.com/syntrixbase/marketsearch/internal/metrics"
	"github.com/syntrixbase/marketsearch/pkg/model"
)

// Writer builds the searchable text of an entity and upserts its index row.
// It never retries; the enclosing job does.
type Writer struct {
	index    types.IndexStore
	sources  types.SourceReader
	enhancer enhancer.Enhancer
	timeout  time.Duration
}

// NewWriter creates a Writer. timeout bounds each enhancement call; 0 means no bound
// beyond ctx. A nil enhancer indexes raw text.
func NewWriter(index types.IndexStore, sources types.SourceReader, enh enhancer.Enhancer, timeout time.Duration) *Writer {
	if enh == nil {
		enh = enhancer.Noop{}
	}
	return &Writer{index: index, sources: sources, enhancer: enh, timeout: timeout}
}

// Upsert writes the index row of a business, catalog or product snapshot.
func (w *Writer) Upsert(ctx context.Context, entity model.Entity) error {
	raw, err := RawText(entity)
	if err != nil {
		return err
	}
	row, err := rowFor(entity, w.enhance(ctx, entity, raw))
	if err != nil {
		return err
	}

	err = w.index.Upsert(ctx, row)
	metrics.IndexUpserts.WithLabelValues(string(row.Family), metrics.Result(err)).Inc()
	if err != nil {
		return fmt.Errorf("upsert %s %d: %w", row.Family, row.EntityID, err)
	}
	return nil
}

// Reindex reloads an entity from the source tables and upserts its row.
// An entity that no longer exists is skipped.
func (w *Writer) Reindex(ctx context.Context, family model.Family, id int64) error {
	entity, err := w.load(ctx, family, id)
	if errors.Is(err, model.ErrNotFound) {
		slog.Info("Skipping reindex of missing entity", "family", family, "id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s %d: %w", family, id, err)
	}
	return w.Upsert(ctx, entity)
}

func (w *Writer) load(ctx context.Context, family model.Family, id int64) (model.Entity, error) {
	switch family {
	case model.FamilyBusiness:
		return w.sources.Business(ctx, id)
	case model.FamilyCatalog:
		return w.sources.Catalog(ctx, id)
	case model.FamilyProduct:
		return w.sources.Product(ctx, id)
	}
	return nil, fmt.Errorf("%w: %q", model.ErrInvalidFamily, family)
}

func (w *Writer) enhance(ctx context.Context, entity model.Entity, raw string) string {
	if raw == "" {
		return ""
	}
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	text, err := w.enhancer.Enhance(ctx, raw)
	if err != nil || text == "" {
		metrics.Enhancements.WithLabelValues(metrics.OutcomeFallback).Inc()
		slog.Warn("Text enhancement failed, indexing raw text",
			"family", entity.Family(), "id", entity.EntityID(), "error", err)
		return raw
	}
	metrics.Enhancements.WithLabelValues(metrics.OutcomeEnhanced).Inc()
	return text
}
