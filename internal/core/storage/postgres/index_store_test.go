package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syntrixbase/marketsearch/internal/core/storage/types"
	"github.com/syntrixbase/marketsearch/pkg/model"
)

func setupMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock, types.IndexStore) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	store := NewIndexStore(db, "english")
	return db, mock, store
}

func TestUpsert_Business(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, mock, store := setupMock(t)
	defer db.Close()

	row := &model.IndexRow{
		Family:     model.FamilyBusiness,
		EntityID:   7,
		SearchText: "Acme Bakery fresh bread",
		Counters: model.Counters{
			Visits:             10,
			Followers:          3,
			CatalogVisitsTotal: 4,
			ProductVisitsTotal: 5,
			ProductLikesTotal:  -2, // floored before writing
		},
	}

	mock.ExpectExec(`INSERT INTO business_search_index .* ON CONFLICT \(business_id\) DO UPDATE SET`).
		WithArgs(int64(7), "Acme Bakery fresh bread", "english", int64(10), int64(3), int64(4), int64(5), int64(0)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.Upsert(ctx, row)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_Catalog(t *testing.T) {
	ctx := context.Background()
	db, mock, store := setupMock(t)
	defer db.Close()

	row := &model.IndexRow{
		Family:     model.FamilyCatalog,
		EntityID:   20,
		BusinessID: 7,
		SearchText: "Breads",
		Counters:   model.Counters{Visits: 1, ProductVisitsTotal: 2, ProductLikesTotal: 3},
	}

	mock.ExpectExec(`INSERT INTO catalog_search_index .* ON CONFLICT \(catalog_id\)`).
		WithArgs(int64(20), int64(7), "Breads", "english", int64(1), int64(2), int64(3)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	assert.NoError(t, store.Upsert(ctx, row))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_Product(t *testing.T) {
	ctx := context.Background()
	db, mock, store := setupMock(t)
	defer db.Close()

	row := &model.IndexRow{
		Family:     model.FamilyProduct,
		EntityID:   300,
		CatalogID:  20,
		BusinessID: 7,
		SearchText: "Sourdough loaf",
		Counters:   model.Counters{Visits: 9, Likes: 2, RatingAverage: 4.5},
	}

	mock.ExpectExec(`INSERT INTO product_search_index .* ON CONFLICT \(product_id\)`).
		WithArgs(int64(300), int64(20), int64(7), "Sourdough loaf", "english", int64(9), int64(2), 4.5).
		WillReturnResult(sqlmock.NewResult(1, 1))

	assert.NoError(t, store.Upsert(ctx, row))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_MissingSourceEntity(t *testing.T) {
	ctx := context.Background()
	db, mock, store := setupMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO business_search_index`).
		WillReturnError(&pq.Error{Code: "23503", Message: "violates foreign key constraint"})

	err := store.Upsert(ctx, &model.IndexRow{Family: model.FamilyBusiness, EntityID: 99})
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_InvalidFamily(t *testing.T) {
	db, _, store := setupMock(t)
	defer db.Close()

	err := store.Upsert(context.Background(), &model.IndexRow{Family: "shop", EntityID: 1})
	assert.ErrorIs(t, err, model.ErrInvalidFamily)
}

func TestUpsert_DBError(t *testing.T) {
	db, mock, store := setupMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO product_search_index`).WillReturnError(errors.New("connection reset"))

	err := store.Upsert(context.Background(), &model.IndexRow{Family: model.FamilyProduct, EntityID: 1})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestAddCounter_ProductReturnsOwners(t *testing.T) {
	db, mock, store := setupMock(t)
	defer db.Close()

	mock.ExpectQuery(`UPDATE product_search_index SET likes = GREATEST\(likes \+ \$2, 0\), updated_at = NOW\(\) WHERE product_id = \$1 RETURNING catalog_id, business_id`).
		WithArgs(int64(300), int64(-1)).
		WillReturnRows(sqlmock.NewRows([]string{"catalog_id", "business_id"}).AddRow(20, 7))

	owners, err := store.AddCounter(context.Background(), model.FamilyProduct, 300, model.CounterLikes, -1)
	require.NoError(t, err)
	assert.Equal(t, model.Owners{CatalogID: 20, BusinessID: 7}, owners)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddCounter_CatalogAndBusiness(t *testing.T) {
	db, mock, store := setupMock(t)
	defer db.Close()

	mock.ExpectQuery(`UPDATE catalog_search_index SET visits = GREATEST\(visits \+ \$2, 0\).* WHERE catalog_id = \$1 RETURNING 0::BIGINT, business_id`).
		WithArgs(int64(20), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"int8", "business_id"}).AddRow(0, 7))
	mock.ExpectQuery(`UPDATE business_search_index SET catalog_visits_total = GREATEST\(catalog_visits_total \+ \$2, 0\).* WHERE business_id = \$1`).
		WithArgs(int64(7), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"int8", "int8"}).AddRow(0, 0))

	owners, err := store.AddCounter(context.Background(), model.FamilyCatalog, 20, model.CounterVisits, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(7), owners.BusinessID)
	assert.Zero(t, owners.CatalogID)

	owners, err = store.AddCounter(context.Background(), model.FamilyBusiness, 7, model.CounterCatalogVisitsTotal, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(7), owners.BusinessID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddCounter_RowMissing(t *testing.T) {
	db, mock, store := setupMock(t)
	defer db.Close()

	mock.ExpectQuery(`UPDATE business_search_index SET followers`).
		WithArgs(int64(5), int64(1)).
		WillReturnError(sql.ErrNoRows)

	_, err := store.AddCounter(context.Background(), model.FamilyBusiness, 5, model.CounterFollowers, 1)
	assert.ErrorIs(t, err, model.ErrIndexRowMissing)
}

func TestAddCounter_CounterNotOnFamily(t *testing.T) {
	db, _, store := setupMock(t)
	defer db.Close()

	_, err := store.AddCounter(context.Background(), model.FamilyProduct, 1, model.CounterFollowers, 1)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not defined on product_search_index")

	_, err = store.AddCounter(context.Background(), "nope", 1, model.CounterVisits, 1)
	assert.ErrorIs(t, err, model.ErrInvalidFamily)
}

func TestSetRatingAverage(t *testing.T) {
	db, mock, store := setupMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE product_search_index SET rating_average = \$2`).
		WithArgs(int64(300), 4.25).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE product_search_index SET rating_average = \$2`).
		WithArgs(int64(404), 0.0).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, store.SetRatingAverage(context.Background(), 300, 4.25))
	err := store.SetRatingAverage(context.Background(), 404, -1)
	assert.ErrorIs(t, err, model.ErrIndexRowMissing)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet(t *testing.T) {
	db, mock, store := setupMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT catalog_id, business_id, search_text, visits, likes, rating_average`).
		WithArgs(int64(300)).
		WillReturnRows(sqlmock.NewRows([]string{
			"catalog_id", "business_id", "search_text", "visits", "likes", "rating_average", "created_at", "updated_at",
		}).AddRow(20, 7, "Sourdough", 9, 2, 4.5, now, now))

	row, err := store.Get(context.Background(), model.FamilyProduct, 300)
	require.NoError(t, err)
	assert.Equal(t, model.FamilyProduct, row.Family)
	assert.Equal(t, int64(300), row.EntityID)
	assert.Equal(t, int64(20), row.CatalogID)
	assert.Equal(t, int64(7), row.BusinessID)
	assert.Equal(t, int64(9), row.Counters.Visits)
	assert.Equal(t, 4.5, row.Counters.RatingAverage)

	mock.ExpectQuery(`FROM business_search_index WHERE business_id = \$1`).
		WithArgs(int64(1)).
		WillReturnError(sql.ErrNoRows)
	_, err = store.Get(context.Background(), model.FamilyBusiness, 1)
	assert.ErrorIs(t, err, model.ErrIndexRowMissing)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS business_search_index`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, EnsureSchema(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}
