package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/syntrixbase/marketsearch/internal/core/storage/types"
	"github.com/syntrixbase/marketsearch/pkg/model"
)

type ranker struct {
	db       *sql.DB
	language string
}

// NewRanker creates a ranker that scores index rows with ts_rank under the given
// text search configuration. Rows whose source entity or parents are soft-deleted
// never appear in results or counts.
func NewRanker(db *sql.DB, language string) types.Ranker {
	if language == "" {
		language = DefaultLanguage
	}
	return &ranker{db: db, language: language}
}

func (r *ranker) Rank(ctx context.Context, family model.Family, query string, limit, offset int) ([]model.Hit, error) {
	t, err := tableFor(family)
	if err != nil {
		return nil, err
	}

	stmt := fmt.Sprintf(`
		SELECT i.%s, ts_rank(i.search_vector, q) AS score
		FROM %s i
		%s
		CROSS JOIN plainto_tsquery($1::regconfig, $2) AS q
		WHERE i.search_vector @@ q
		ORDER BY score DESC, i.%s ASC
		LIMIT $3 OFFSET $4
	`, t.idCol, t.name, t.live, t.idCol)

	rows, err := r.db.QueryContext(ctx, stmt, r.language, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("rank %s: %w", family, err)
	}
	return scanHits(rows, family)
}

func (r *ranker) Count(ctx context.Context, family model.Family, query string) (int, error) {
	t, err := tableFor(family)
	if err != nil {
		return 0, err
	}

	stmt := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM %s i
		%s
		WHERE i.search_vector @@ plainto_tsquery($1::regconfig, $2)
	`, t.name, t.live)

	var n int
	if err := r.db.QueryRowContext(ctx, stmt, r.language, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", family, err)
	}
	return n, nil
}

func (r *ranker) Featured(ctx context.Context, family model.Family, limit, offset int) ([]model.Hit, error) {
	t, err := tableFor(family)
	if err != nil {
		return nil, err
	}

	stmt := fmt.Sprintf(`
		SELECT i.%s, (%s)::DOUBLE PRECISION AS score
		FROM %s i
		%s
		ORDER BY score DESC, i.%s ASC
		LIMIT $1 OFFSET $2
	`, t.idCol, t.featured, t.name, t.live, t.idCol)

	rows, err := r.db.QueryContext(ctx, stmt, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("featured %s: %w", family, err)
	}
	return scanHits(rows, family)
}

func (r *ranker) CountLive(ctx context.Context, family model.Family) (int, error) {
	t, err := tableFor(family)
	if err != nil {
		return 0, err
	}

	stmt := fmt.Sprintf(`SELECT COUNT(*) FROM %s i %s`, t.name, t.live)

	var n int
	if err := r.db.QueryRowContext(ctx, stmt).Scan(&n); err != nil {
		return 0, fmt.Errorf("count live %s: %w", family, err)
	}
	return n, nil
}

func scanHits(rows *sql.Rows, family model.Family) ([]model.Hit, error) {
	defer rows.Close()

	var hits []model.Hit
	for rows.Next() {
		h := model.Hit{Family: family}
		if err := rows.Scan(&h.ID, &h.Score); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}
