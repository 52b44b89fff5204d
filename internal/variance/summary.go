package variance

import (
	"math"

	"forecast-guard/internal/domain"
)

// Summary aggregates accuracy over many analyzed predictions.
type Summary struct {
	Count        int                   `json:"count"`
	MeanAccuracy float64               `json:"mean_accuracy"`
	MAPE         float64               `json:"mape"` // mean absolute variance percentage, zero actuals excluded
	RatingCounts map[domain.Rating]int `json:"rating_counts"`
}

// Summarize computes mean accuracy, MAPE and rating distribution.
// Results with a zero actual count toward accuracy but not MAPE.
// An empty input yields a zero Summary with an empty rating map.
func Summarize(results []domain.AccuracyResult) Summary {
	s := Summary{
		Count:        len(results),
		RatingCounts: make(map[domain.Rating]int),
	}
	if len(results) == 0 {
		return s
	}

	var accSum, apeSum float64
	apeCount := 0
	for _, r := range results {
		accSum += r.AccuracyPercentage
		s.RatingCounts[r.Rating]++
		// variance percentage is undefined for a zero actual
		if !r.Actual.IsZero() {
			apeSum += math.Abs(r.VariancePercentage)
			apeCount++
		}
	}
	s.MeanAccuracy = accSum / float64(len(results))
	if apeCount > 0 {
		s.MAPE = apeSum / float64(apeCount)
	}
	return s
}
