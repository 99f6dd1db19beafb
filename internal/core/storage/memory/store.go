// Package memory provides an in-process backend for the index and entity contracts.
// It serves standalone deployments and end-to-end tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/syntrixbase/marketsearch/internal/core/storage/types"
	"github.com/syntrixbase/marketsearch/pkg/model"
)

type entityKey struct {
	family model.Family
	id     int64
}

// Store keeps entities, ratings and index rows in memory.
// It implements every storage contract the search pipeline consumes.
type Store struct {
	mu sync.RWMutex

	businesses map[int64]*model.Business
	catalogs   map[int64]*model.Catalog
	products   map[int64]*model.Product
	ratings    map[int64]map[int64]model.Rating // product id -> rating id -> rating
	deleted    map[entityKey]bool

	rows  map[model.Family]map[int64]*model.IndexRow
	texts map[model.Family]*fulltext

	now func() time.Time
}

var (
	_ types.IndexStore     = (*Store)(nil)
	_ types.Ranker         = (*Store)(nil)
	_ types.SourceReader   = (*Store)(nil)
	_ types.Hydrator       = (*Store)(nil)
	_ types.RatingStore    = (*Store)(nil)
	_ types.CatalogCounter = (*Store)(nil)
)

func NewStore() *Store {
	s := &Store{
		businesses: make(map[int64]*model.Business),
		catalogs:   make(map[int64]*model.Catalog),
		products:   make(map[int64]*model.Product),
		ratings:    make(map[int64]map[int64]model.Rating),
		deleted:    make(map[entityKey]bool),
		rows:       make(map[model.Family]map[int64]*model.IndexRow),
		texts:      make(map[model.Family]*fulltext),
		now:        time.Now,
	}
	for _, f := range model.Families {
		s.rows[f] = make(map[int64]*model.IndexRow)
		text, err := newFulltext()
		if err != nil {
			// Only an invalid index mapping fails here
			panic(err)
		}
		s.texts[f] = text
	}
	return s
}

// Close releases the text indexes.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, text := range s.texts {
		if err := text.close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PutBusiness creates or replaces a business entity.
func (s *Store) PutBusiness(b *model.Business) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *b
	cp.Tags = append([]string(nil), b.Tags...)
	s.businesses[b.ID] = &cp
}

// PutCatalog creates or replaces a catalog entity.
func (s *Store) PutCatalog(c *model.Catalog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	cp.Tags = append([]string(nil), c.Tags...)
	cp.ProductTitles = nil
	cp.BusinessName = ""
	s.catalogs[c.ID] = &cp
}

// PutProduct creates or replaces a product entity, including its variations.
func (s *Store) PutProduct(p *model.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := cloneProduct(p)
	cp.CatalogTitle = ""
	cp.BusinessName = ""
	s.products[p.ID] = cp
}

// PutRating records or replaces an active rating.
func (s *Store) PutRating(r model.Rating) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.ratings[r.ProductID]
	if !ok {
		m = make(map[int64]model.Rating)
		s.ratings[r.ProductID] = m
	}
	m[r.ID] = r
}

// RemoveRating removes a rating so it no longer counts towards the average.
func (s *Store) RemoveRating(productID, ratingID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ratings[productID], ratingID)
}

// SoftDelete marks an entity deleted. Its index row is kept but no longer matches.
func (s *Store) SoftDelete(family model.Family, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted[entityKey{family, id}] = true
}

// Restore clears the deleted mark of an entity.
func (s *Store) Restore(family model.Family, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.deleted, entityKey{family, id})
}

// IndexStore

func (s *Store) Upsert(_ context.Context, row *model.IndexRow) error {
	if !row.Family.Valid() {
		return fmt.Errorf("%w: %q", model.ErrInvalidFamily, row.Family)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.existsLocked(row.Family, row.EntityID) {
		return fmt.Errorf("upsert %s index row %d: %w", row.Family, row.EntityID, model.ErrNotFound)
	}

	now := s.now()
	cp := *row
	cp.Counters = floorCounters(row.Family, row.Counters)
	cp.UpdatedAt = now
	if existing, ok := s.rows[row.Family][row.EntityID]; ok {
		cp.CreatedAt = existing.CreatedAt
	} else {
		cp.CreatedAt = now
	}
	switch row.Family {
	case model.FamilyBusiness:
		cp.BusinessID, cp.CatalogID = row.EntityID, 0
	case model.FamilyCatalog:
		cp.CatalogID = row.EntityID
	}

	if err := s.texts[row.Family].put(row.EntityID, row.SearchText); err != nil {
		return err
	}
	s.rows[row.Family][row.EntityID] = &cp
	return nil
}

func (s *Store) AddCounter(_ context.Context, family model.Family, id int64, counter model.Counter, delta int64) (model.Owners, error) {
	if !family.Valid() {
		return model.Owners{}, fmt.Errorf("%w: %q", model.ErrInvalidFamily, family)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[family][id]
	if !ok {
		return model.Owners{}, fmt.Errorf("%s %d: %w", family, id, model.ErrIndexRowMissing)
	}
	field, err := counterField(&row.Counters, family, counter)
	if err != nil {
		return model.Owners{}, err
	}
	*field += delta
	if *field < 0 {
		*field = 0
	}
	row.UpdatedAt = s.now()

	owners := model.Owners{BusinessID: row.BusinessID}
	if family == model.FamilyProduct {
		owners.CatalogID = row.CatalogID
	}
	return owners, nil
}

func (s *Store) SetRatingAverage(_ context.Context, productID int64, average float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[model.FamilyProduct][productID]
	if !ok {
		return fmt.Errorf("product %d: %w", productID, model.ErrIndexRowMissing)
	}
	if average < 0 {
		average = 0
	}
	row.Counters.RatingAverage = average
	row.UpdatedAt = s.now()
	return nil
}

func (s *Store) Get(_ context.Context, family model.Family, id int64) (*model.IndexRow, error) {
	if !family.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidFamily, family)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[family][id]
	if !ok {
		return nil, fmt.Errorf("%s %d: %w", family, id, model.ErrIndexRowMissing)
	}
	cp := *row
	return &cp, nil
}

// Ranker

func (s *Store) Rank(ctx context.Context, family model.Family, query string, limit, offset int) ([]model.Hit, error) {
	scores, err := s.match(ctx, family, query)
	if err != nil {
		return nil, err
	}
	return page(sortHits(family, scores), limit, offset), nil
}

func (s *Store) Count(ctx context.Context, family model.Family, query string) (int, error) {
	scores, err := s.match(ctx, family, query)
	if err != nil {
		return 0, err
	}
	return len(scores), nil
}

func (s *Store) match(ctx context.Context, family model.Family, query string) (map[int64]float64, error) {
	if !family.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidFamily, family)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.texts[family].match(ctx, query, func(id int64) bool { return s.liveLocked(family, id) })
}

func (s *Store) Featured(_ context.Context, family model.Family, limit, offset int) ([]model.Hit, error) {
	if !family.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidFamily, family)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	scores := make(map[int64]float64, len(s.rows[family]))
	for id, row := range s.rows[family] {
		if s.liveLocked(family, id) {
			scores[id] = featuredScore(family, row.Counters)
		}
	}
	return page(sortHits(family, scores), limit, offset), nil
}

func (s *Store) CountLive(_ context.Context, family model.Family) (int, error) {
	if !family.Valid() {
		return 0, fmt.Errorf("%w: %q", model.ErrInvalidFamily, family)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for id := range s.rows[family] {
		if s.liveLocked(family, id) {
			n++
		}
	}
	return n, nil
}

// featuredScore mirrors the weighted formulas of the Postgres ranker.
func featuredScore(family model.Family, c model.Counters) float64 {
	switch family {
	case model.FamilyBusiness:
		return float64(c.Followers*3 + c.Visits + c.CatalogVisitsTotal + c.ProductVisitsTotal + c.ProductLikesTotal*2)
	case model.FamilyCatalog:
		return float64(c.Visits + c.ProductVisitsTotal + c.ProductLikesTotal*2)
	default:
		return float64(c.Visits+c.Likes*2) + c.RatingAverage*5
	}
}

func sortHits(family model.Family, scores map[int64]float64) []model.Hit {
	hits := make([]model.Hit, 0, len(scores))
	for id, score := range scores {
		hits = append(hits, model.Hit{Family: family, ID: id, Score: score})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	return hits
}

func page(hits []model.Hit, limit, offset int) []model.Hit {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(hits) {
		return nil
	}
	hits = hits[offset:]
	if limit >= 0 && limit < len(hits) {
		hits = hits[:limit]
	}
	return hits
}

func counterField(c *model.Counters, family model.Family, counter model.Counter) (*int64, error) {
	switch {
	case counter == model.CounterVisits:
		return &c.Visits, nil
	case counter == model.CounterFollowers && family == model.FamilyBusiness:
		return &c.Followers, nil
	case counter == model.CounterLikes && family == model.FamilyProduct:
		return &c.Likes, nil
	case counter == model.CounterCatalogVisitsTotal && family == model.FamilyBusiness:
		return &c.CatalogVisitsTotal, nil
	case counter == model.CounterProductVisitsTotal && family != model.FamilyProduct:
		return &c.ProductVisitsTotal, nil
	case counter == model.CounterProductLikesTotal && family != model.FamilyProduct:
		return &c.ProductLikesTotal, nil
	}
	return nil, fmt.Errorf("counter %q is not defined on %s rows", counter, family)
}

// floorCounters clamps negative values and zeroes counters the family does not carry.
func floorCounters(family model.Family, c model.Counters) model.Counters {
	floor := func(v int64) int64 {
		if v < 0 {
			return 0
		}
		return v
	}
	out := model.Counters{Visits: floor(c.Visits)}
	switch family {
	case model.FamilyBusiness:
		out.Followers = floor(c.Followers)
		out.CatalogVisitsTotal = floor(c.CatalogVisitsTotal)
		out.ProductVisitsTotal = floor(c.ProductVisitsTotal)
		out.ProductLikesTotal = floor(c.ProductLikesTotal)
	case model.FamilyCatalog:
		out.ProductVisitsTotal = floor(c.ProductVisitsTotal)
		out.ProductLikesTotal = floor(c.ProductLikesTotal)
	case model.FamilyProduct:
		out.Likes = floor(c.Likes)
		if c.RatingAverage > 0 {
			out.RatingAverage = c.RatingAverage
		}
	}
	return out
}
