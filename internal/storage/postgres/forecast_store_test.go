package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forecast-guard/internal/domain"
	"forecast-guard/internal/storage"
)

func nd(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func sampleForecast(id string, created time.Time) *domain.ForecastRecord {
	return &domain.ForecastRecord{
		ID:                id,
		Company:           "Acme Ltd",
		Account:           "Cash - AL",
		ForecastType:      domain.ForecastTypeCashFlow,
		ForecastStartDate: ptr(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)),
		PredictedAmount:   nd("153000.50"),
		UpperBound:        nd("152231.96"),
		LowerBound:        nd("154663.20"),
		ConfidenceScore:   nd("85"),
		CreatedAt:         created,
	}
}

func TestForecastStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewForecastStore(pool)
	ctx := context.Background()
	created := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	r := sampleForecast("fc-1", created)
	require.NoError(t, store.Insert(ctx, r))

	got, err := store.GetByID(ctx, "fc-1")
	require.NoError(t, err)

	assert.Equal(t, "Acme Ltd", got.Company)
	assert.True(t, got.PredictedAmount.Decimal.Equal(decimal.RequireFromString("153000.50")))
	assert.True(t, got.UpperBound.Decimal.Equal(decimal.RequireFromString("152231.96")))
	assert.False(t, got.ActualAmount.Valid)
	require.NotNil(t, got.ForecastStartDate)
	assert.True(t, got.ForecastStartDate.Equal(*r.ForecastStartDate))
	assert.Nil(t, got.ForecastEndDate)
	assert.True(t, got.CreatedAt.Equal(created))
	assert.Equal(t, int64(0), got.Version)
	assert.Empty(t, got.Provenance)
}

func TestForecastStore_DuplicateAndNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewForecastStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, sampleForecast("fc-1", time.Now())))

	err := store.Insert(ctx, sampleForecast("fc-1", time.Now()))
	assert.True(t, errors.Is(err, storage.ErrDuplicateKey), "got %v", err)

	_, err = store.GetByID(ctx, "missing")
	assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)
}

func TestForecastStore_SaveWithVersionCheck(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewForecastStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, sampleForecast("fc-1", time.Now())))

	r, err := store.GetByID(ctx, "fc-1")
	require.NoError(t, err)
	stale, err := store.GetByID(ctx, "fc-1")
	require.NoError(t, err)

	before := r.Bounds()
	r.UpperBound, r.LowerBound = r.LowerBound, r.UpperBound
	r.Provenance = append(r.Provenance, domain.ProvenanceEvent{
		ID:        "ev-1",
		Timestamp: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		Action:    domain.ActionSwapBounds,
		Before:    before,
		After:     r.Bounds(),
	})
	require.NoError(t, store.Save(ctx, r))
	assert.Equal(t, int64(1), r.Version)

	got, err := store.GetByID(ctx, "fc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
	assert.True(t, got.UpperBound.Decimal.Equal(decimal.RequireFromString("154663.20")))
	require.Len(t, got.Provenance, 1)
	assert.Equal(t, "ev-1", got.Provenance[0].ID)
	assert.True(t, got.Provenance[0].Before.Upper.Equal(decimal.RequireFromString("152231.96")))

	err = store.Save(ctx, stale)
	assert.True(t, errors.Is(err, storage.ErrVersionConflict), "got %v", err)

	err = store.Save(ctx, sampleForecast("ghost", time.Now()))
	assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)
}

func TestForecastStore_ListFilters(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewForecastStore(pool)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	inverted := sampleForecast("fc-inv", base)
	ok := sampleForecast("fc-ok", base.Add(time.Hour))
	ok.UpperBound, ok.LowerBound = ok.LowerBound, ok.UpperBound
	other := sampleForecast("fc-other", base.Add(2*time.Hour))
	other.Company = "Other Co"
	other.ForecastType = domain.ForecastTypeRevenue

	for _, r := range []*domain.ForecastRecord{other, inverted, ok} {
		require.NoError(t, store.Insert(ctx, r))
	}

	all, err := store.List(ctx, storage.ForecastFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "fc-inv", all[0].ID)
	assert.Equal(t, "fc-other", all[2].ID)

	acme, err := store.List(ctx, storage.ForecastFilter{Company: "Acme Ltd"})
	require.NoError(t, err)
	assert.Len(t, acme, 2)

	revenue, err := store.List(ctx, storage.ForecastFilter{ForecastType: domain.ForecastTypeRevenue})
	require.NoError(t, err)
	require.Len(t, revenue, 1)
	assert.Equal(t, "fc-other", revenue[0].ID)

	inv, err := store.List(ctx, storage.ForecastFilter{OnlyInvertedBounds: true})
	require.NoError(t, err)
	assert.Len(t, inv, 2)

	after := base.Add(30 * time.Minute)
	limited, err := store.List(ctx, storage.ForecastFilter{CreatedAfter: &after, Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "fc-ok", limited[0].ID)
}

func TestIsConnectionError(t *testing.T) {
	assert.False(t, isConnectionError(nil))
	assert.False(t, isConnectionError(errors.New("syntax error")))
	assert.True(t, errors.Is(wrapError("op", &timeoutError{}), storage.ErrUnavailable))
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }
