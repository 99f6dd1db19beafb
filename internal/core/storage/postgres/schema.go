package postgres

import (
	"context"
	"database/sql"
)

// indexSchema creates the three index tables. The entity tables (businesses, catalogs,
// products, product_variations, product_ratings) belong to the entity service and must
// exist before this runs.
const indexSchema = `
CREATE TABLE IF NOT EXISTS business_search_index (
    id                    BIGSERIAL PRIMARY KEY,
    business_id           BIGINT NOT NULL UNIQUE REFERENCES businesses(id),
    search_text           TEXT NOT NULL DEFAULT '',
    search_vector         TSVECTOR NOT NULL,
    visits                BIGINT NOT NULL DEFAULT 0,
    followers             BIGINT NOT NULL DEFAULT 0,
    catalog_visits_total  BIGINT NOT NULL DEFAULT 0,
    product_visits_total  BIGINT NOT NULL DEFAULT 0,
    product_likes_total   BIGINT NOT NULL DEFAULT 0,
    created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT chk_business_search_index_counters CHECK (
        visits >= 0 AND followers >= 0 AND catalog_visits_total >= 0
        AND product_visits_total >= 0 AND product_likes_total >= 0
    )
);

CREATE INDEX IF NOT EXISTS idx_business_search_index_vector ON business_search_index USING GIN (search_vector);

CREATE TABLE IF NOT EXISTS catalog_search_index (
    id                    BIGSERIAL PRIMARY KEY,
    catalog_id            BIGINT NOT NULL UNIQUE REFERENCES catalogs(id),
    business_id           BIGINT NOT NULL,
    search_text           TEXT NOT NULL DEFAULT '',
    search_vector         TSVECTOR NOT NULL,
    visits                BIGINT NOT NULL DEFAULT 0,
    product_visits_total  BIGINT NOT NULL DEFAULT 0,
    product_likes_total   BIGINT NOT NULL DEFAULT 0,
    created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT chk_catalog_search_index_counters CHECK (
        visits >= 0 AND product_visits_total >= 0 AND product_likes_total >= 0
    )
);

CREATE INDEX IF NOT EXISTS idx_catalog_search_index_vector ON catalog_search_index USING GIN (search_vector);
CREATE INDEX IF NOT EXISTS idx_catalog_search_index_business ON catalog_search_index(business_id);

CREATE TABLE IF NOT EXISTS product_search_index (
    id                    BIGSERIAL PRIMARY KEY,
    product_id            BIGINT NOT NULL UNIQUE REFERENCES products(id),
    catalog_id            BIGINT NOT NULL,
    business_id           BIGINT NOT NULL,
    search_text           TEXT NOT NULL DEFAULT '',
    search_vector         TSVECTOR NOT NULL,
    visits                BIGINT NOT NULL DEFAULT 0,
    likes                 BIGINT NOT NULL DEFAULT 0,
    rating_average        DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT chk_product_search_index_counters CHECK (
        visits >= 0 AND likes >= 0 AND rating_average >= 0
    )
);

CREATE INDEX IF NOT EXISTS idx_product_search_index_vector ON product_search_index USING GIN (search_vector);
CREATE INDEX IF NOT EXISTS idx_product_search_index_catalog ON product_search_index(catalog_id);
CREATE INDEX IF NOT EXISTS idx_product_search_index_business ON product_search_index(business_id);
`

// EnsureSchema creates the index tables and indexes if they don't exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, indexSchema)
	return err
}
