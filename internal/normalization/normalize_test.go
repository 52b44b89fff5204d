package normalization

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forecast-guard/internal/idhash"
)

func TestNormalize_CanonicalDocument(t *testing.T) {
	doc := map[string]any{
		"id":                  "fc-1",
		"company":             "Acme Ltd",
		"account":             "Cash - AL",
		"forecast_type":       "cash_flow",
		"forecast_start_date": "2025-07-01",
		"forecast_end_date":   "2025-07-31",
		"predicted_amount":    "153000.50",
		"upper_bound":         "152231.96",
		"lower_bound":         "154663.20",
		"confidence_score":    "85",
		"created_at":          "2025-06-30T12:00:00Z",
	}

	r, err := Normalize(doc)
	require.NoError(t, err)

	assert.Equal(t, "fc-1", r.ID)
	assert.Equal(t, "Acme Ltd", r.Company)
	assert.True(t, r.PredictedAmount.Decimal.Equal(decimal.RequireFromString("153000.50")))
	assert.True(t, r.UpperBound.Decimal.Equal(decimal.RequireFromString("152231.96")))
	require.NotNil(t, r.ForecastStartDate)
	assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), *r.ForecastStartDate)
	assert.Equal(t, time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC), r.CreatedAt)
	assert.False(t, r.ActualAmount.Valid)
}

func TestNormalize_ResolvesAliases(t *testing.T) {
	expenseDoc := map[string]any{
		"name":                     "EXP-0001",
		"expense_account":          "Office Supplies",
		"total_predicted_expenses": 1200.5,
		"actual_expenses":          "1100",
		"from_date":                "2025-01-01",
		"to_date":                  "2025-01-31",
		"prediction_confidence":    72,
		"creation":                 "2025-01-02 09:15:00.123456",
	}
	revenueDoc := map[string]any{
		"forecast_id":            "REV-9",
		"income_account":         "Sales",
		"predicted_revenue":      "5000",
		"upper_confidence_bound": "5500",
		"lower_confidence_bound": "4500",
		"actual_revenue":         "4800",
		"forecast_date":          "2025-02-01T00:00:00+02:00",
	}

	expense, err := Normalize(expenseDoc)
	require.NoError(t, err)
	assert.Equal(t, "EXP-0001", expense.ID)
	assert.Equal(t, "Office Supplies", expense.Account)
	assert.True(t, expense.PredictedAmount.Decimal.Equal(decimal.RequireFromString("1200.5")))
	assert.True(t, expense.ActualAmount.Decimal.Equal(decimal.NewFromInt(1100)))
	assert.True(t, expense.ConfidenceScore.Decimal.Equal(decimal.NewFromInt(72)))
	require.NotNil(t, expense.ForecastEndDate)
	assert.Equal(t, 31, expense.ForecastEndDate.Day())
	assert.Equal(t, 9, expense.CreatedAt.Hour())

	revenue, err := Normalize(revenueDoc)
	require.NoError(t, err)
	assert.Equal(t, "REV-9", revenue.ID)
	assert.Equal(t, "Sales", revenue.Account)
	assert.True(t, revenue.UpperBound.Decimal.Equal(decimal.NewFromInt(5500)))
	assert.True(t, revenue.LowerBound.Decimal.Equal(decimal.NewFromInt(4500)))
	require.NotNil(t, revenue.ForecastStartDate)
	assert.Equal(t, time.Date(2025, 1, 31, 22, 0, 0, 0, time.UTC), *revenue.ForecastStartDate)
}

func TestNormalize_AliasPriority(t *testing.T) {
	r, err := Normalize(map[string]any{
		"predicted_amount":         "10",
		"total_predicted_expenses": "99",
		"account":                  "",
		"bank_account":             "Bank",
	})
	require.NoError(t, err)

	assert.True(t, r.PredictedAmount.Decimal.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, "Bank", r.Account, "empty values fall through to the next alias")
}

func TestNormalize_MissingFieldsStayNull(t *testing.T) {
	r, err := Normalize(map[string]any{"company": "Acme Ltd"})
	require.NoError(t, err)

	assert.False(t, r.PredictedAmount.Valid)
	assert.False(t, r.HasBounds())
	assert.Nil(t, r.ForecastStartDate)
	assert.True(t, r.CreatedAt.IsZero())
	assert.Equal(t, idhash.ComputeForecastID("Acme Ltd", "", "", nil), r.ID)
}

func TestNormalize_InvalidValues(t *testing.T) {
	docs := []map[string]any{
		{"predicted_amount": "abc"},
		{"upper_bound": true},
		{"forecast_start_date": "07/01/2025"},
		{"company": 12.5},
	}

	for _, doc := range docs {
		_, err := Normalize(doc)
		assert.True(t, errors.Is(err, ErrInvalidDocument), "doc %v: got %v", doc, err)
	}
}

func TestDecodeJSON_ArrayExactNumbers(t *testing.T) {
	input := `[
		{"id": "a", "predicted_amount": 0.1, "upper_bound": 152231.96, "lower_bound": 154663.20},
		{"id": "b", "predicted_sales": "42"}
	]`

	records, err := DecodeJSON(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "0.1", records[0].PredictedAmount.Decimal.String())
	diff := records[0].LowerBound.Decimal.Sub(records[0].UpperBound.Decimal)
	assert.Equal(t, "2431.24", diff.String())
	assert.True(t, records[1].PredictedAmount.Decimal.Equal(decimal.NewFromInt(42)))
}

func TestDecodeJSON_SingleObject(t *testing.T) {
	records, err := DecodeJSON(strings.NewReader(`{"id": "solo", "company": "Acme Ltd"}`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "solo", records[0].ID)
}

func TestDecodeJSON_Errors(t *testing.T) {
	_, err := DecodeJSON(strings.NewReader(`not json`))
	assert.Error(t, err)

	_, err = DecodeJSON(strings.NewReader(`[{"id": "x", "confidence": "high"}]`))
	assert.True(t, errors.Is(err, ErrInvalidDocument))
	assert.Contains(t, err.Error(), "document 0")
}
