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

// foreignKeyViolation is the Postgres error code raised when the source entity row is absent.
const foreignKeyViolation = "23503"

// DefaultLanguage is the text search configuration used when none is given.
const DefaultLanguage = "english"

type indexStore struct {
	db       *sql.DB
	language string
}

// NewIndexStore creates an index store on db. language names the text search
// configuration applied to search_vector (e.g. "english").
func NewIndexStore(db *sql.DB, language string) types.IndexStore {
	if language == "" {
		language = DefaultLanguage
	}
	return &indexStore{db: db, language: language}
}

func (s *indexStore) Upsert(ctx context.Context, row *model.IndexRow) error {
	var (
		query string
		args  []interface{}
	)

	c := row.Counters
	switch row.Family {
	case model.FamilyBusiness:
		query = `
			INSERT INTO business_search_index (
				business_id, search_text, search_vector,
				visits, followers, catalog_visits_total, product_visits_total, product_likes_total,
				created_at, updated_at
			) VALUES ($1, $2, to_tsvector($3::regconfig, $2), $4, $5, $6, $7, $8, NOW(), NOW())
			ON CONFLICT (business_id) DO UPDATE SET
				search_text = EXCLUDED.search_text,
				search_vector = EXCLUDED.search_vector,
				visits = EXCLUDED.visits,
				followers = EXCLUDED.followers,
				catalog_visits_total = EXCLUDED.catalog_visits_total,
				product_visits_total = EXCLUDED.product_visits_total,
				product_likes_total = EXCLUDED.product_likes_total,
				updated_at = NOW()
		`
		args = []interface{}{
			row.EntityID, row.SearchText, s.language,
			nonNegative(c.Visits), nonNegative(c.Followers), nonNegative(c.CatalogVisitsTotal),
			nonNegative(c.ProductVisitsTotal), nonNegative(c.ProductLikesTotal),
		}
	case model.FamilyCatalog:
		query = `
			INSERT INTO catalog_search_index (
				catalog_id, business_id, search_text, search_vector,
				visits, product_visits_total, product_likes_total,
				created_at, updated_at
			) VALUES ($1, $2, $3, to_tsvector($4::regconfig, $3), $5, $6, $7, NOW(), NOW())
			ON CONFLICT (catalog_id) DO UPDATE SET
				business_id = EXCLUDED.business_id,
				search_text = EXCLUDED.search_text,
				search_vector = EXCLUDED.search_vector,
				visits = EXCLUDED.visits,
				product_visits_total = EXCLUDED.product_visits_total,
				product_likes_total = EXCLUDED.product_likes_total,
				updated_at = NOW()
		`
		args = []interface{}{
			row.EntityID, row.BusinessID, row.SearchText, s.language,
			nonNegative(c.Visits), nonNegative(c.ProductVisitsTotal), nonNegative(c.ProductLikesTotal),
		}
	case model.FamilyProduct:
		query = `
			INSERT INTO product_search_index (
				product_id, catalog_id, business_id, search_text, search_vector,
				visits, likes, rating_average,
				created_at, updated_at
			) VALUES ($1, $2, $3, $4, to_tsvector($5::regconfig, $4), $6, $7, $8, NOW(), NOW())
			ON CONFLICT (product_id) DO UPDATE SET
				catalog_id = EXCLUDED.catalog_id,
				business_id = EXCLUDED.business_id,
				search_text = EXCLUDED.search_text,
				search_vector = EXCLUDED.search_vector,
				visits = EXCLUDED.visits,
				likes = EXCLUDED.likes,
				rating_average = EXCLUDED.rating_average,
				updated_at = NOW()
		`
		ratingAverage := c.RatingAverage
		if ratingAverage < 0 {
			ratingAverage = 0
		}
		args = []interface{}{
			row.EntityID, row.CatalogID, row.BusinessID, row.SearchText, s.language,
			nonNegative(c.Visits), nonNegative(c.Likes), ratingAverage,
		}
	default:
		return fmt.Errorf("%w: %q", model.ErrInvalidFamily, row.Family)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("upsert %s index row %d: %w", row.Family, row.EntityID, model.ErrNotFound)
		}
		return fmt.Errorf("upsert %s index row %d: %w", row.Family, row.EntityID, err)
	}
	return nil
}

func (s *indexStore) AddCounter(ctx context.Context, family model.Family, id int64, counter model.Counter, delta int64) (model.Owners, error) {
	t, err := tableFor(family)
	if err != nil {
		return model.Owners{}, err
	}
	col, err := t.counterColumn(counter)
	if err != nil {
		return model.Owners{}, err
	}

	query := fmt.Sprintf(
		`UPDATE %s SET %s = GREATEST(%s + $2, 0), updated_at = NOW() WHERE %s = $1 RETURNING %s`,
		t.name, col, col, t.idCol, t.owners,
	)

	var owners model.Owners
	err = s.db.QueryRowContext(ctx, query, id, delta).Scan(&owners.CatalogID, &owners.BusinessID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Owners{}, fmt.Errorf("%s %d: %w", family, id, model.ErrIndexRowMissing)
	}
	if err != nil {
		return model.Owners{}, fmt.Errorf("add %s to %s %d: %w", counter, family, id, err)
	}
	if family == model.FamilyBusiness {
		owners.BusinessID = id
	}
	return owners, nil
}

func (s *indexStore) SetRatingAverage(ctx context.Context, productID int64, average float64) error {
	if average < 0 {
		average = 0
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE product_search_index SET rating_average = $2, updated_at = NOW() WHERE product_id = $1`,
		productID, average,
	)
	if err != nil {
		return fmt.Errorf("set rating average of product %d: %w", productID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("product %d: %w", productID, model.ErrIndexRowMissing)
	}
	return nil
}

func (s *indexStore) Get(ctx context.Context, family model.Family, id int64) (*model.IndexRow, error) {
	row := &model.IndexRow{Family: family, EntityID: id}
	c := &row.Counters

	var err error
	switch family {
	case model.FamilyBusiness:
		err = s.db.QueryRowContext(ctx, `
			SELECT search_text, visits, followers, catalog_visits_total, product_visits_total,
				product_likes_total, created_at, updated_at
			FROM business_search_index WHERE business_id = $1
		`, id).Scan(&row.SearchText, &c.Visits, &c.Followers, &c.CatalogVisitsTotal,
			&c.ProductVisitsTotal, &c.ProductLikesTotal, &row.CreatedAt, &row.UpdatedAt)
		row.BusinessID = id
	case model.FamilyCatalog:
		err = s.db.QueryRowContext(ctx, `
			SELECT business_id, search_text, visits, product_visits_total, product_likes_total,
				created_at, updated_at
			FROM catalog_search_index WHERE catalog_id = $1
		`, id).Scan(&row.BusinessID, &row.SearchText, &c.Visits, &c.ProductVisitsTotal,
			&c.ProductLikesTotal, &row.CreatedAt, &row.UpdatedAt)
		row.CatalogID = id
	case model.FamilyProduct:
		err = s.db.QueryRowContext(ctx, `
			SELECT catalog_id, business_id, search_text, visits, likes, rating_average,
				created_at, updated_at
			FROM product_search_index WHERE product_id = $1
		`, id).Scan(&row.CatalogID, &row.BusinessID, &row.SearchText, &c.Visits, &c.Likes,
			&c.RatingAverage, &row.CreatedAt, &row.UpdatedAt)
	default:
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidFamily, family)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %d: %w", family, id, model.ErrIndexRowMissing)
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func isForeignKeyViolation(err error) bool {
	return pqCode(err) == foreignKeyViolation
}
