// Package quality rolls completeness, accuracy, consistency and timeliness
// of a forecast collection into one graded score.
package quality

import (
	"fmt"
	"math"
	"strings"
	"time"

	"forecast-guard/internal/domain"
)

const day = 24 * time.Hour

// ComputeReport scores records created within the last windowDays days.
// windowDays <= 0 scores every record.
func ComputeReport(records []*domain.ForecastRecord, windowDays int, now time.Time) domain.QualityReport {
	report := Score(records, time.Duration(windowDays)*day, now)
	report.WindowDays = windowDays
	return report
}

// Score computes the quality report for records whose CreatedAt falls within
// window of now. A zero window disables the restriction.
// Score never fails: an empty collection yields zeroed sub-scores and grade F.
func Score(records []*domain.ForecastRecord, window time.Duration, now time.Time) domain.QualityReport {
	inWindow := filterWindow(records, window, now)

	report := domain.QualityReport{
		WindowDays:   int(window / day),
		TotalRecords: len(inWindow),
		GeneratedAt:  now,
	}

	if len(inWindow) == 0 {
		report.Grade = domain.GradeFor(0)
		report.Issues = []string{"no forecast records in window"}
		return report
	}

	missing := countMissingFields(inWindow)
	outliers := countOutliers(predictedValues(inWindow))
	duplicates := countDuplicates(inWindow)
	daysSince := now.Sub(mostRecent(inWindow)).Hours() / 24

	total := float64(len(inWindow))
	report.Completeness = clampScore(100 - float64(missing)/total*100)
	report.Accuracy = clampScore(100 - float64(outliers)/total*100)
	report.Consistency = clampScore(100 - float64(duplicates)/total*100)
	report.Timeliness = timelinessScore(daysSince)

	report.OverallScore = round1(
		report.Completeness*domain.WeightCompleteness +
			report.Accuracy*domain.WeightAccuracy +
			report.Consistency*domain.WeightConsistency +
			report.Timeliness*domain.WeightTimeliness,
	)
	report.Grade = domain.GradeFor(report.OverallScore)

	if missing > 0 {
		report.Issues = append(report.Issues, fmt.Sprintf("%d missing required field values", missing))
	}
	if outliers > 0 {
		report.Issues = append(report.Issues, fmt.Sprintf("%d outlier predictions", outliers))
	}
	if duplicates > 0 {
		report.Issues = append(report.Issues, fmt.Sprintf("%d duplicate forecasts", duplicates))
	}
	if daysSince > 7 {
		report.Issues = append(report.Issues, fmt.Sprintf("no new forecasts for %.0f days", math.Floor(daysSince)))
	}

	return report
}

func filterWindow(records []*domain.ForecastRecord, window time.Duration, now time.Time) []*domain.ForecastRecord {
	out := make([]*domain.ForecastRecord, 0, len(records))
	cutoff := now.Add(-window)
	for _, r := range records {
		if r == nil {
			continue
		}
		if window > 0 && r.CreatedAt.Before(cutoff) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// countMissingFields counts missing values of account, predicted_amount and
// forecast_start_date, once per missing field rather than once per record.
func countMissingFields(records []*domain.ForecastRecord) int {
	missing := 0
	for _, r := range records {
		if strings.TrimSpace(r.Account) == "" {
			missing++
		}
		if !r.PredictedAmount.Valid {
			missing++
		}
		if r.ForecastStartDate == nil {
			missing++
		}
	}
	return missing
}

func predictedValues(records []*domain.ForecastRecord) []float64 {
	values := make([]float64, 0, len(records))
	for _, r := range records {
		if r.PredictedAmount.Valid {
			values = append(values, r.PredictedAmount.Decimal.InexactFloat64())
		}
	}
	return values
}

type consistencyKey struct {
	company      string
	forecastType string
	forecastDate string
}

// countDuplicates counts records beyond the first in every group sharing
// (company, forecast_type, forecast_start_date).
func countDuplicates(records []*domain.ForecastRecord) int {
	groups := make(map[consistencyKey]int, len(records))
	for _, r := range records {
		key := consistencyKey{company: r.Company, forecastType: r.ForecastType}
		if r.ForecastStartDate != nil {
			key.forecastDate = r.ForecastStartDate.UTC().Format(time.DateOnly)
		}
		groups[key]++
	}

	dups := 0
	for _, n := range groups {
		if n > 1 {
			dups += n - 1
		}
	}
	return dups
}

func mostRecent(records []*domain.ForecastRecord) time.Time {
	var latest time.Time
	for _, r := range records {
		if r.CreatedAt.After(latest) {
			latest = r.CreatedAt
		}
	}
	return latest
}

func timelinessScore(daysSinceLast float64) float64 {
	switch {
	case daysSinceLast <= 1:
		return 100
	case daysSinceLast <= 7:
		return 80
	case daysSinceLast <= 30:
		return 60
	default:
		return 40
	}
}

func clampScore(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
