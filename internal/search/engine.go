// Package search is the read path: federated full-text search and featured
// listings over the index, hydrated back into entities.
package search

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/syntrixbase/marketsearch/internal/core/storage/types"
	"github.com/syntrixbase/marketsearch/internal/metrics"
	"github.com/syntrixbase/marketsearch/internal/search/config"
	"github.com/syntrixbase/marketsearch/pkg/model"
	"golang.org/x/sync/errgroup"
)

// Pagination is the page request of a search.
type Pagination struct {
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	SearchText string `json:"searchText"`
}

// Item is one hydrated result.
type Item struct {
	Entity model.Entity `json:"entity"`
	Family model.Family `json:"family"`
}

// Result is a page of results. Items may be shorter than Limit when ranked ids
// fail to hydrate. Approximate is set when an all-scope page lies beyond the
// merge window of a saturated family.
type Result struct {
	Items       []Item `json:"items"`
	Total       int    `json:"total"`
	Page        int    `json:"page"`
	Limit       int    `json:"limit"`
	Approximate bool   `json:"approximate,omitempty"`
}

// Engine answers search and featured queries. It never returns an error: any
// failure is logged and yields an empty page.
type Engine struct {
	ranker   types.Ranker
	hydrator types.Hydrator
	cfg      config.Config
}

// NewEngine creates an Engine.
func NewEngine(ranker types.Ranker, hydrator types.Hydrator, cfg config.Config) *Engine {
	cfg.ApplyDefaults()
	return &Engine{ranker: ranker, hydrator: hydrator, cfg: cfg}
}

// ranked is the outcome of ranking before hydration.
type ranked struct {
	hits        []model.Hit
	total       int
	approximate bool
}

// Search runs a full-text query over the families of scope.
func (e *Engine) Search(ctx context.Context, p Pagination, scope model.Scope) Result {
	page, limit := e.normalize(p.Page, p.Limit)
	res := Result{Items: []Item{}, Page: page, Limit: limit}

	query := strings.TrimSpace(p.SearchText)
	if query == "" {
		return res
	}
	families := scope.Families()
	if len(families) == 0 {
		slog.Warn("Search with unknown scope", "scope", scope)
		return res
	}

	return e.run(ctx, string(scope), res, func(ctx context.Context) (ranked, error) {
		offset := e.offset(page, limit)
		if len(families) == 1 {
			return e.rankSingle(ctx, families[0], query, limit, offset)
		}
		return e.rankMerged(ctx, families, query, limit, offset)
	})
}

// FeaturedBusinesses ranks live businesses by their weighted counters.
func (e *Engine) FeaturedBusinesses(ctx context.Context, page, limit int) Result {
	return e.featured(ctx, model.FamilyBusiness, page, limit)
}

// FeaturedCatalogs ranks live catalogs by their weighted counters.
func (e *Engine) FeaturedCatalogs(ctx context.Context, page, limit int) Result {
	return e.featured(ctx, model.FamilyCatalog, page, limit)
}

// FeaturedProducts ranks live products by their weighted counters.
func (e *Engine) FeaturedProducts(ctx context.Context, page, limit int) Result {
	return e.featured(ctx, model.FamilyProduct, page, limit)
}

func (e *Engine) featured(ctx context.Context, family model.Family, page, limit int) Result {
	page, limit = e.normalize(page, limit)
	res := Result{Items: []Item{}, Page: page, Limit: limit}

	return e.run(ctx, "featured_"+string(family), res, func(ctx context.Context) (ranked, error) {
		var out ranked
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			hits, err := e.ranker.Featured(gctx, family, limit, e.offset(page, limit))
			out.hits = hits
			return err
		})
		g.Go(func() error {
			n, err := e.ranker.CountLive(gctx, family)
			out.total = n
			return err
		})
		return out, g.Wait()
	})
}

// run ranks, hydrates and converts any failure into the empty page res.
func (e *Engine) run(ctx context.Context, label string, res Result, rank func(context.Context) (ranked, error)) Result {
	start := time.Now()
	defer func() {
		metrics.SearchLatency.WithLabelValues(label).Observe(time.Since(start).Seconds())
	}()

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	r, err := rank(ctx)
	if err == nil {
		res.Items, err = e.hydrate(ctx, r.hits)
	}
	if err != nil {
		res.Items = []Item{}
		if model.IsCanceled(err) {
			slog.Warn("Search canceled, returning empty result", "scope", label, "error", err)
			metrics.SearchRequests.WithLabelValues(label, metrics.OutcomeCanceled).Inc()
			return res
		}
		slog.Error("Search failed, returning empty result", "scope", label, "error", err)
		metrics.SearchRequests.WithLabelValues(label, metrics.OutcomeError).Inc()
		return res
	}

	res.Total = r.total
	res.Approximate = r.approximate
	outcome := metrics.OutcomeOK
	if r.approximate {
		outcome = metrics.OutcomeApproximate
	}
	metrics.SearchRequests.WithLabelValues(label, outcome).Inc()
	return res
}

func (e *Engine) rankSingle(ctx context.Context, family model.Family, query string, limit, offset int) (ranked, error) {
	var out ranked
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := e.ranker.Rank(gctx, family, query, limit, offset)
		out.hits = hits
		return err
	})
	g.Go(func() error {
		n, err := e.ranker.Count(gctx, family, query)
		out.total = n
		return err
	})
	return out, g.Wait()
}

// rankMerged fetches the top window rows of every family from offset 0, merges
// them by score and slices the requested page.
func (e *Engine) rankMerged(ctx context.Context, families []model.Family, query string, limit, offset int) (ranked, error) {
	window := offset + limit + e.cfg.Overfetch
	if window > e.cfg.MergeWindowCap {
		window = e.cfg.MergeWindowCap
	}

	hits := make([][]model.Hit, len(families))
	counts := make([]int, len(families))

	g, gctx := errgroup.WithContext(ctx)
	for i, family := range families {
		g.Go(func() error {
			h, err := e.ranker.Rank(gctx, family, query, window, 0)
			hits[i] = h
			return err
		})
		g.Go(func() error {
			n, err := e.ranker.Count(gctx, family, query)
			counts[i] = n
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return ranked{}, err
	}

	var out ranked
	var merged []model.Hit
	for i, family := range families {
		merged = append(merged, hits[i]...)
		out.total += counts[i]
		if window < offset+limit && len(hits[i]) == window && counts[i] > window {
			out.approximate = true
			slog.Warn("All-scope page exceeds the merge window, ranking is approximate",
				"family", family, "window", window, "offset", offset, "limit", limit, "matches", counts[i])
		}
	}

	sortHits(merged)
	out.hits = slice(merged, offset, limit)
	return out, nil
}

// hydrate loads the entities of hits, one batch per family, and returns them in
// ranked order. Ids that do not hydrate are dropped.
func (e *Engine) hydrate(ctx context.Context, hits []model.Hit) ([]Item, error) {
	if len(hits) == 0 {
		return []Item{}, nil
	}

	ids := make(map[model.Family][]int64)
	var families []model.Family
	for _, h := range hits {
		if _, ok := ids[h.Family]; !ok {
			families = append(families, h.Family)
		}
		ids[h.Family] = append(ids[h.Family], h.ID)
	}

	loaded := make([]map[int64]model.Entity, len(families))
	g, gctx := errgroup.WithContext(ctx)
	for i, family := range families {
		g.Go(func() error {
			m, err := e.hydrator.Hydrate(gctx, family, ids[family])
			loaded[i] = m
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byFamily := make(map[model.Family]map[int64]model.Entity, len(families))
	for i, family := range families {
		byFamily[family] = loaded[i]
	}

	items := make([]Item, 0, len(hits))
	for _, h := range hits {
		entity, ok := byFamily[h.Family][h.ID]
		if !ok {
			metrics.HydrationMisses.WithLabelValues(string(h.Family)).Inc()
			continue
		}
		items = append(items, Item{Entity: entity, Family: h.Family})
	}
	return items, nil
}

func (e *Engine) normalize(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}
	if limit > e.cfg.MaxLimit {
		limit = e.cfg.MaxLimit
	}
	return page, limit
}

// offset returns the first row of page. It saturates instead of overflowing, so
// offset+limit+Overfetch always fits in an int and far pages come back empty.
func (e *Engine) offset(page, limit int) int {
	maxOffset := math.MaxInt - limit - e.cfg.Overfetch
	if page-1 > maxOffset/limit {
		return maxOffset
	}
	return (page - 1) * limit
}

// sortHits orders by score desc, then family order, then id asc.
func sortHits(hits []model.Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Family != b.Family {
			return a.Family.Order() < b.Family.Order()
		}
		return a.ID < b.ID
	})
}

func slice(hits []model.Hit, offset, limit int) []model.Hit {
	if offset < 0 || offset >= len(hits) {
		return nil
	}
	end := offset + limit
	if end > len(hits) {
		end = len(hits)
	}
	return hits[offset:end]
}
