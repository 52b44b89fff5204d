// Package variance compares predictions with observed actuals.
package variance

import (
	"math"

	"github.com/shopspring/decimal"

	"forecast-guard/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Analyze computes variance, variance percentage, accuracy percentage and
// rating for one prediction against its actual value.
//
// Zero actual: variance percentage is 0; accuracy is 100 when the
// prediction is also 0, else 0. Accuracy is clamped at 0 before rating.
func Analyze(predicted, actual decimal.Decimal) domain.AccuracyResult {
	variance := predicted.Sub(actual)

	result := domain.AccuracyResult{
		Predicted: predicted,
		Actual:    actual,
		Variance:  variance,
	}

	if actual.IsZero() {
		if predicted.IsZero() {
			result.AccuracyPercentage = 100
		}
		result.Rating = RatingFor(result.AccuracyPercentage)
		return result
	}

	absActual := actual.Abs()
	result.VariancePercentage = variance.Div(absActual).Mul(hundred).InexactFloat64()

	accuracy := decimal.NewFromInt(1).Sub(variance.Abs().Div(absActual)).Mul(hundred)
	result.AccuracyPercentage = math.Max(0, accuracy.InexactFloat64())
	result.Rating = RatingFor(result.AccuracyPercentage)

	return result
}

// AnalyzeRecord analyzes a stored record. Returns false when the record has
// no predicted or no actual amount yet.
func AnalyzeRecord(r *domain.ForecastRecord) (domain.AccuracyResult, bool) {
	if r == nil || !r.PredictedAmount.Valid || !r.ActualAmount.Valid {
		return domain.AccuracyResult{}, false
	}
	return Analyze(r.PredictedAmount.Decimal, r.ActualAmount.Decimal), true
}

// RatingFor maps an accuracy percentage to its tier.
func RatingFor(accuracyPct float64) domain.Rating {
	if accuracyPct < 0 {
		accuracyPct = 0
	}
	switch {
	case accuracyPct >= 95:
		return domain.RatingExcellent
	case accuracyPct >= 85:
		return domain.RatingGood
	case accuracyPct >= 70:
		return domain.RatingFair
	case accuracyPct >= 50:
		return domain.RatingPoor
	default:
		return domain.RatingVeryPoor
	}
}
