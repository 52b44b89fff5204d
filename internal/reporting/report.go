package reporting

import (
	"time"

	"forecast-guard/internal/bounds"
	"forecast-guard/internal/domain"
	"forecast-guard/internal/variance"
)

// Report is the validation report over one forecast collection.
type Report struct {
	GeneratedAt time.Time
	WindowDays  int

	// Summary counts every record by overall severity.
	Summary bounds.Summary

	// Critical lists records with at least one CRITICAL check, sorted by forecast id.
	Critical []ValidationRow

	// Accuracy lists records with an observed actual, sorted by forecast id.
	Accuracy        []AccuracyRow
	AccuracySummary variance.Summary

	Quality domain.QualityReport
}

// ValidationRow is one validated record.
type ValidationRow struct {
	ForecastID   string
	Company      string
	ForecastType string
	Severity     domain.Severity
	UpperBound   string // empty when not set
	LowerBound   string
	Findings     []string
}

// AccuracyRow is one analyzed record.
type AccuracyRow struct {
	ForecastID         string
	Company            string
	ForecastType       string
	Predicted          string
	Actual             string
	Variance           string
	VariancePercentage float64
	AccuracyPercentage float64
	Rating             domain.Rating
}
