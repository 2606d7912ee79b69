package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salscrudato/product-console/internal/model"
)

func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresStore{pool: mock}, mock
}

func productColumns() []string {
	return []string{"id", "name", "product_code", "form_number", "effective_date", "available_states", "status", "created_at", "updated_at"}
}

func coverageColumns() []string {
	return []string{"id", "product_id", "coverage_code", "coverage_name", "parent_coverage_id", "limits", "deductibles", "states", "created_at", "updated_at"}
}

func TestCreateProduct(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO products`).
		WithArgs(pgxmock.AnyArg(), "BOP Select", "BOP-01", "CP 00 10", pgxmock.AnyArg(),
			[]byte(`["OH","PA"]`), "draft", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	p, err := store.CreateProduct(context.Background(), model.Product{
		Name:            "BOP Select",
		ProductCode:     "BOP-01",
		FormNumber:      "CP 00 10",
		EffectiveDate:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		AvailableStates: []string{"OH", "PA"},
		Status:          model.ProductStatusDraft,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.False(t, p.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProductNotFound(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM products WHERE id`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(productColumns()))

	p, err := store.GetProduct(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, p)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListProducts(t *testing.T) {
	store, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .+ FROM products ORDER BY name`).
		WillReturnRows(pgxmock.NewRows(productColumns()).
			AddRow("p1", "Commercial Auto", "CA-01", "", now, []byte(`["TX"]`), model.ProductStatus("active"), now, now).
			AddRow("p2", "Workers Comp", "WC-01", "", now, []byte(`[]`), model.ProductStatus("filed"), now, now))

	products, err := store.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, []string{"TX"}, products[0].AvailableStates)
	assert.Equal(t, model.ProductStatusFiled, products[1].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCoverageValidatesParent(t *testing.T) {
	store, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	// Parent points at a coverage on a different product, which the
	// sibling query will not return.
	mock.ExpectQuery(`SELECT .+ FROM coverages WHERE product_id`).
		WithArgs("p1").
		WillReturnRows(pgxmock.NewRows(coverageColumns()).
			AddRow("c1", "p1", "BLDG", "Building", nil, []byte(`[]`), []byte(`[]`), []byte(`[]`), now, now))

	_, err := store.CreateCoverage(context.Background(), model.Coverage{
		ProductID:        "p1",
		CoverageCode:     "BPP",
		CoverageName:     "Business Personal Property",
		ParentCoverageID: "other-product-coverage",
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCoverage(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM coverages WHERE product_id`).
		WithArgs("p1").
		WillReturnRows(pgxmock.NewRows(coverageColumns()))

	mock.ExpectExec(`INSERT INTO coverages`).
		WithArgs(pgxmock.AnyArg(), "p1", "BLDG", "Building", "",
			[]byte(`["500000"]`), []byte(`["1000"]`), []byte(`[]`),
			pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	c, err := store.CreateCoverage(context.Background(), model.Coverage{
		ProductID:    "p1",
		CoverageCode: "BLDG",
		CoverageName: "Building",
		Limits:       []decimal.Decimal{decimal.NewFromInt(500000)},
		Deductibles:  []decimal.Decimal{decimal.NewFromInt(1000)},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkInsertCoverages(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	mock.ExpectCopyFrom(
		pgx.Identifier{"coverages"},
		[]string{"id", "product_id", "coverage_code", "coverage_name", "parent_coverage_id", "limits", "deductibles", "states", "created_at", "updated_at"},
	).WillReturnResult(2)

	n, err := store.BulkInsertCoverages(context.Background(), []model.Coverage{
		{ProductID: "p1", CoverageCode: "BLDG", CoverageName: "Building"},
		{ProductID: "p1", CoverageCode: "BPP", CoverageName: "Business Personal Property"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListPricingStepsParsesValues(t *testing.T) {
	store, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .+ FROM pricing_steps WHERE product_id .+ ORDER BY step_order`).
		WithArgs("p1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "product_id", "step_order", "name", "operand", "value", "table_ref", "created_at", "updated_at"}).
			AddRow("s1", "p1", 1, "Base rate", "*", "1.25", "base_rates", now, now).
			AddRow("s2", "p1", 2, "Territory factor", "*", "0.92", "", now, now))

	steps, err := store.ListPricingSteps(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.True(t, steps[0].Value.Equal(decimal.NewFromFloat(1.25)))
	assert.Equal(t, "base_rates", steps[0].Table)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetFeedCacheMiss(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM feed_cache WHERE kind`).
		WithArgs("news").
		WillReturnRows(pgxmock.NewRows([]string{"kind", "payload", "fetched_at", "expires_at"}))

	fc, err := store.GetFeedCache(context.Background(), model.FeedKindNews)
	require.NoError(t, err)
	assert.Nil(t, fc)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetFeedCache(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO feed_cache`).
		WithArgs("news", []byte(`{"articles":[]}`), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.SetFeedCache(context.Background(), model.FeedKindNews, []byte(`{"articles":[]}`), 45*time.Minute)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExtendFeedCache(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE feed_cache SET expires_at`).
		WithArgs(10*time.Minute, "earnings").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := store.ExtendFeedCache(context.Background(), model.FeedKindEarnings, 10*time.Minute)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
