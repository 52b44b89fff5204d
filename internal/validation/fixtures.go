package validation

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"forecast-guard/internal/domain"
	"forecast-guard/internal/storage"
)

// Fixture record ids.
const (
	FixtureInvertedCash   = "FC-CASH-0001"
	FixtureValidRevenue   = "FC-REV-0001"
	FixtureLowConfidence  = "FC-EXP-0001"
	FixtureEqualBounds    = "FC-EXP-0002"
	FixtureInvertedLowCon = "FC-SALES-0001"
	FixtureIncomplete     = "FC-INV-0001"
)

// Fixtures returns demonstration records covering every repair outcome,
// created relative to now.
func Fixtures(now time.Time) []*domain.ForecastRecord {
	day := 24 * time.Hour
	start := now.Truncate(day).Add(day)
	end := start.AddDate(0, 1, -1)

	base := func(id, account, forecastType string, created time.Duration) *domain.ForecastRecord {
		s, e := start, end
		return &domain.ForecastRecord{
			ID:                id,
			Company:           "Acme Ltd",
			Account:           account,
			ForecastType:      forecastType,
			ForecastStartDate: &s,
			ForecastEndDate:   &e,
			CreatedAt:         now.Add(-created),
		}
	}

	cash := base(FixtureInvertedCash, "Cash - AL", domain.ForecastTypeCashFlow, 2*time.Hour)
	cash.PredictedAmount = amount("153447.58")
	cash.UpperBound = amount("152231.96")
	cash.LowerBound = amount("154663.20")
	cash.ConfidenceScore = amount("85")
	cash.ActualAmount = amount("150210.40")

	revenue := base(FixtureValidRevenue, "Sales - AL", domain.ForecastTypeRevenue, 3*time.Hour)
	revenue.PredictedAmount = amount("110000")
	revenue.UpperBound = amount("120000")
	revenue.LowerBound = amount("100000")
	revenue.ConfidenceScore = amount("90")
	revenue.ActualAmount = amount("108500")

	lowConfidence := base(FixtureLowConfidence, "Office Supplies - AL", domain.ForecastTypeExpense, 4*time.Hour)
	lowConfidence.PredictedAmount = amount("4200")
	lowConfidence.UpperBound = amount("4800")
	lowConfidence.LowerBound = amount("3900")
	lowConfidence.ConfidenceScore = amount("45")

	equal := base(FixtureEqualBounds, "Rent - AL", domain.ForecastTypeExpense, 5*time.Hour)
	equal.ForecastStartDate = ptrTime(start.AddDate(0, 1, 0))
	equal.PredictedAmount = amount("5000")
	equal.UpperBound = amount("5000")
	equal.LowerBound = amount("5000")
	equal.ConfidenceScore = amount("80")

	sales := base(FixtureInvertedLowCon, "Sales - AL", domain.ForecastTypeSales, 6*time.Hour)
	sales.PredictedAmount = amount("61000")
	sales.UpperBound = amount("58000")
	sales.LowerBound = amount("64000")
	sales.ConfidenceScore = amount("40")

	incomplete := base(FixtureIncomplete, "", domain.ForecastTypeInventory, 7*time.Hour)
	incomplete.ConfidenceScore = amount("75")

	return []*domain.ForecastRecord{cash, revenue, lowConfidence, equal, sales, incomplete}
}

// LoadFixtures inserts Fixtures(now) into store.
func LoadFixtures(ctx context.Context, store storage.ForecastStore, now time.Time) error {
	for _, r := range Fixtures(now) {
		if err := store.Insert(ctx, r); err != nil {
			return fmt.Errorf("insert fixture %s: %w", r.ID, err)
		}
	}
	return nil
}

func amount(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func ptrTime(t time.Time) *time.Time {
	return &t
}
