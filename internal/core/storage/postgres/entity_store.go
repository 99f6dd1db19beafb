package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/syntrixbase/marketsearch/internal/core/storage/types"
	"github.com/syntrixbase/marketsearch/pkg/model"
)

// EntityStore reads the entity tables owned by the marketplace CRUD layer. It loads
// snapshots for indexing, hydrates search results and persists the two values this
// subsystem is allowed to write back: product rating averages and catalog product counts.
type EntityStore struct {
	db *sql.DB
}

var (
	_ types.SourceReader   = (*EntityStore)(nil)
	_ types.Hydrator       = (*EntityStore)(nil)
	_ types.RatingStore    = (*EntityStore)(nil)
	_ types.CatalogCounter = (*EntityStore)(nil)
)

func NewEntityStore(db *sql.DB) *EntityStore {
	return &EntityStore{db: db}
}

func (s *EntityStore) Business(ctx context.Context, id int64) (*model.Business, error) {
	var b model.Business
	err := s.db.QueryRowContext(ctx, `
		SELECT b.id, b.name, COALESCE(b.description, ''), b.tags, b.created_at, b.updated_at,
			b.visits_count, b.followers_count,
			COALESCE((SELECT SUM(c.visits_count) FROM catalogs c
				WHERE c.business_id = b.id AND c.deleted_at IS NULL), 0),
			COALESCE((SELECT SUM(p.visits_count) FROM products p
				JOIN catalogs c ON c.id = p.catalog_id AND c.deleted_at IS NULL
				WHERE p.business_id = b.id AND p.deleted_at IS NULL), 0),
			COALESCE((SELECT SUM(p.likes_count) FROM products p
				JOIN catalogs c ON c.id = p.catalog_id AND c.deleted_at IS NULL
				WHERE p.business_id = b.id AND p.deleted_at IS NULL), 0)
		FROM businesses b
		WHERE b.id = $1 AND b.deleted_at IS NULL
	`, id).Scan(&b.ID, &b.Name, &b.Description, pq.Array(&b.Tags), &b.CreatedAt, &b.UpdatedAt,
		&b.VisitsCount, &b.FollowersCount, &b.CatalogVisitsTotal, &b.ProductVisitsTotal, &b.ProductLikesTotal)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("business %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *EntityStore) Catalog(ctx context.Context, id int64) (*model.Catalog, error) {
	var c model.Catalog
	err := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.business_id, c.title, COALESCE(c.description, ''), c.tags, c.created_at, c.updated_at,
			b.name,
			ARRAY(SELECT p.title FROM products p
				WHERE p.catalog_id = c.id AND p.deleted_at IS NULL ORDER BY p.id),
			c.products_count, c.visits_count,
			COALESCE((SELECT SUM(p.visits_count) FROM products p
				WHERE p.catalog_id = c.id AND p.deleted_at IS NULL), 0),
			COALESCE((SELECT SUM(p.likes_count) FROM products p
				WHERE p.catalog_id = c.id AND p.deleted_at IS NULL), 0)
		FROM catalogs c
		JOIN businesses b ON b.id = c.business_id AND b.deleted_at IS NULL
		WHERE c.id = $1 AND c.deleted_at IS NULL
	`, id).Scan(&c.ID, &c.BusinessID, &c.Title, &c.Description, pq.Array(&c.Tags), &c.CreatedAt, &c.UpdatedAt,
		&c.BusinessName, pq.Array(&c.ProductTitles),
		&c.ProductsCount, &c.VisitsCount, &c.ProductVisitsTotal, &c.ProductLikesTotal)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("catalog %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *EntityStore) Product(ctx context.Context, id int64) (*model.Product, error) {
	var p model.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT p.id, p.catalog_id, p.business_id, p.title, COALESCE(p.description, ''), p.tags,
			p.created_at, p.updated_at, c.title, b.name,
			p.visits_count, p.likes_count, p.rating_average
		FROM products p
		JOIN catalogs c ON c.id = p.catalog_id AND c.deleted_at IS NULL
		JOIN businesses b ON b.id = p.business_id AND b.deleted_at IS NULL
		WHERE p.id = $1 AND p.deleted_at IS NULL
	`, id).Scan(&p.ID, &p.CatalogID, &p.BusinessID, &p.Title, &p.Description, pq.Array(&p.Tags),
		&p.CreatedAt, &p.UpdatedAt, &p.CatalogTitle, &p.BusinessName,
		&p.VisitsCount, &p.LikesCount, &p.RatingAverage)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, options FROM product_variations
		WHERE product_id = $1 AND deleted_at IS NULL
		ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("load variations of product %d: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var v model.Variation
		if err := rows.Scan(&v.ID, &v.Title, pq.Array(&v.Options)); err != nil {
			return nil, err
		}
		p.Variations = append(p.Variations, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *EntityStore) Hydrate(ctx context.Context, family model.Family, ids []int64) (map[int64]model.Entity, error) {
	out := make(map[int64]model.Entity, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var (
		query string
		scan  func(*sql.Rows) (model.Entity, error)
	)

	switch family {
	case model.FamilyBusiness:
		query = `
			SELECT b.id, b.name, COALESCE(b.description, ''), b.tags, b.created_at, b.updated_at,
				b.visits_count, b.followers_count
			FROM businesses b
			WHERE b.id = ANY($1) AND b.deleted_at IS NULL
		`
		scan = func(rows *sql.Rows) (model.Entity, error) {
			var b model.Business
			err := rows.Scan(&b.ID, &b.Name, &b.Description, pq.Array(&b.Tags), &b.CreatedAt, &b.UpdatedAt,
				&b.VisitsCount, &b.FollowersCount)
			return &b, err
		}
	case model.FamilyCatalog:
		query = `
			SELECT c.id, c.business_id, c.title, COALESCE(c.description, ''), c.tags, c.created_at, c.updated_at,
				b.name, c.products_count, c.visits_count
			FROM catalogs c
			JOIN businesses b ON b.id = c.business_id AND b.deleted_at IS NULL
			WHERE c.id = ANY($1) AND c.deleted_at IS NULL
		`
		scan = func(rows *sql.Rows) (model.Entity, error) {
			var c model.Catalog
			err := rows.Scan(&c.ID, &c.BusinessID, &c.Title, &c.Description, pq.Array(&c.Tags), &c.CreatedAt, &c.UpdatedAt,
				&c.BusinessName, &c.ProductsCount, &c.VisitsCount)
			return &c, err
		}
	case model.FamilyProduct:
		query = `
			SELECT p.id, p.catalog_id, p.business_id, p.title, COALESCE(p.description, ''), p.tags,
				p.created_at, p.updated_at, c.title, b.name,
				p.visits_count, p.likes_count, p.rating_average
			FROM products p
			JOIN catalogs c ON c.id = p.catalog_id AND c.deleted_at IS NULL
			JOIN businesses b ON b.id = p.business_id AND b.deleted_at IS NULL
			WHERE p.id = ANY($1) AND p.deleted_at IS NULL
		`
		scan = func(rows *sql.Rows) (model.Entity, error) {
			var p model.Product
			err := rows.Scan(&p.ID, &p.CatalogID, &p.BusinessID, &p.Title, &p.Description, pq.Array(&p.Tags),
				&p.CreatedAt, &p.UpdatedAt, &p.CatalogTitle, &p.BusinessName,
				&p.VisitsCount, &p.LikesCount, &p.RatingAverage)
			return &p, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidFamily, family)
	}

	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("hydrate %s: %w", family, err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out[e.EntityID()] = e
	}
	return out, rows.Err()
}

func (s *EntityStore) ActiveRatings(ctx context.Context, productID int64) ([]model.Rating, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, user_id, stars FROM product_ratings
		WHERE product_id = $1 AND deleted_at IS NULL
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("load ratings of product %d: %w", productID, err)
	}
	defer rows.Close()

	var ratings []model.Rating
	for rows.Next() {
		var r model.Rating
		if err := rows.Scan(&r.ID, &r.ProductID, &r.UserID, &r.Stars); err != nil {
			return nil, err
		}
		ratings = append(ratings, r)
	}
	return ratings, rows.Err()
}

func (s *EntityStore) SetProductRatingAverage(ctx context.Context, productID int64, average float64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET rating_average = $2 WHERE id = $1`,
		productID, average,
	)
	if err != nil {
		return fmt.Errorf("set rating average of product %d: %w", productID, err)
	}
	return requireAffected(res, "product", productID)
}

func (s *EntityStore) AdjustProductsCount(ctx context.Context, catalogID int64, delta int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE catalogs SET products_count = GREATEST(products_count + $2, 0) WHERE id = $1`,
		catalogID, delta,
	)
	if err != nil {
		return fmt.Errorf("adjust products count of catalog %d: %w", catalogID, err)
	}
	return requireAffected(res, "catalog", catalogID)
}

func requireAffected(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, model.ErrNotFound)
	}
	return nil
}
