package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/syntrixbase/marketsearch/pkg/model"
)

func (s *Store) existsLocked(family model.Family, id int64) bool {
	switch family {
	case model.FamilyBusiness:
		_, ok := s.businesses[id]
		return ok
	case model.FamilyCatalog:
		_, ok := s.catalogs[id]
		return ok
	case model.FamilyProduct:
		_, ok := s.products[id]
		return ok
	}
	return false
}

// liveLocked reports whether the entity and all of its parents exist and are not deleted.
func (s *Store) liveLocked(family model.Family, id int64) bool {
	if s.deleted[entityKey{family, id}] {
		return false
	}
	switch family {
	case model.FamilyBusiness:
		_, ok := s.businesses[id]
		return ok
	case model.FamilyCatalog:
		c, ok := s.catalogs[id]
		return ok && s.liveLocked(model.FamilyBusiness, c.BusinessID)
	case model.FamilyProduct:
		p, ok := s.products[id]
		return ok &&
			s.liveLocked(model.FamilyCatalog, p.CatalogID) &&
			s.liveLocked(model.FamilyBusiness, p.BusinessID)
	}
	return false
}

// SourceReader

func (s *Store) Business(_ context.Context, id int64) (*model.Business, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.liveLocked(model.FamilyBusiness, id) {
		return nil, fmt.Errorf("business %d: %w", id, model.ErrNotFound)
	}
	b := *s.businesses[id]
	b.Tags = append([]string(nil), b.Tags...)
	b.CatalogVisitsTotal, b.ProductVisitsTotal, b.ProductLikesTotal = 0, 0, 0
	for cid, c := range s.catalogs {
		if c.BusinessID == id && s.liveLocked(model.FamilyCatalog, cid) {
			b.CatalogVisitsTotal += c.VisitsCount
		}
	}
	for pid, p := range s.products {
		if p.BusinessID == id && s.liveLocked(model.FamilyProduct, pid) {
			b.ProductVisitsTotal += p.VisitsCount
			b.ProductLikesTotal += p.LikesCount
		}
	}
	return &b, nil
}

func (s *Store) Catalog(_ context.Context, id int64) (*model.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.liveLocked(model.FamilyCatalog, id) {
		return nil, fmt.Errorf("catalog %d: %w", id, model.ErrNotFound)
	}
	c := *s.catalogs[id]
	c.Tags = append([]string(nil), c.Tags...)
	c.BusinessName = s.businesses[c.BusinessID].Name
	c.ProductTitles = nil
	c.ProductVisitsTotal, c.ProductLikesTotal = 0, 0

	ids := make([]int64, 0)
	for pid, p := range s.products {
		if p.CatalogID == id && s.liveLocked(model.FamilyProduct, pid) {
			ids = append(ids, pid)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, pid := range ids {
		p := s.products[pid]
		c.ProductTitles = append(c.ProductTitles, p.Title)
		c.ProductVisitsTotal += p.VisitsCount
		c.ProductLikesTotal += p.LikesCount
	}
	return &c, nil
}

func (s *Store) Product(_ context.Context, id int64) (*model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.liveLocked(model.FamilyProduct, id) {
		return nil, fmt.Errorf("product %d: %w", id, model.ErrNotFound)
	}
	p := cloneProduct(s.products[id])
	p.CatalogTitle = s.catalogs[p.CatalogID].Title
	p.BusinessName = s.businesses[p.BusinessID].Name
	return p, nil
}

// Hydrator

func (s *Store) Hydrate(_ context.Context, family model.Family, ids []int64) (map[int64]model.Entity, error) {
	if !family.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidFamily, family)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]model.Entity, len(ids))
	for _, id := range ids {
		if !s.liveLocked(family, id) {
			continue
		}
		switch family {
		case model.FamilyBusiness:
			b := *s.businesses[id]
			b.Tags = append([]string(nil), b.Tags...)
			out[id] = &b
		case model.FamilyCatalog:
			c := *s.catalogs[id]
			c.Tags = append([]string(nil), c.Tags...)
			c.BusinessName = s.businesses[c.BusinessID].Name
			out[id] = &c
		case model.FamilyProduct:
			p := cloneProduct(s.products[id])
			p.CatalogTitle = s.catalogs[p.CatalogID].Title
			p.BusinessName = s.businesses[p.BusinessID].Name
			out[id] = p
		}
	}
	return out, nil
}

// RatingStore

func (s *Store) ActiveRatings(_ context.Context, productID int64) ([]model.Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ratings := make([]model.Rating, 0, len(s.ratings[productID]))
	for _, r := range s.ratings[productID] {
		ratings = append(ratings, r)
	}
	sort.Slice(ratings, func(i, j int) bool { return ratings[i].ID < ratings[j].ID })
	return ratings, nil
}

func (s *Store) SetProductRatingAverage(_ context.Context, productID int64, average float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok {
		return fmt.Errorf("product %d: %w", productID, model.ErrNotFound)
	}
	p.RatingAverage = average
	return nil
}

// CatalogCounter

func (s *Store) AdjustProductsCount(_ context.Context, catalogID int64, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.catalogs[catalogID]
	if !ok {
		return fmt.Errorf("catalog %d: %w", catalogID, model.ErrNotFound)
	}
	c.ProductsCount += delta
	if c.ProductsCount < 0 {
		c.ProductsCount = 0
	}
	return nil
}

func cloneProduct(p *model.Product) *model.Product {
	cp := *p
	cp.Tags = append([]string(nil), p.Tags...)
	cp.Variations = make([]model.Variation, len(p.Variations))
	for i, v := range p.Variations {
		cp.Variations[i] = model.Variation{ID: v.ID, Title: v.Title, Options: append([]string(nil), v.Options...)}
	}
	return &cp
}
