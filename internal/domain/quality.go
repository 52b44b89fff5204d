package domain

import "time"

// Grade is the letter grade summarizing an overall quality score.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// GradeFor maps an overall score to its letter grade.
func GradeFor(score float64) Grade {
	switch {
	case score >= 90:
		return GradeA
	case score >= 80:
		return GradeB
	case score >= 70:
		return GradeC
	case score >= 60:
		return GradeD
	default:
		return GradeF
	}
}

// Sub-score weights of the overall quality score.
const (
	WeightCompleteness = 0.3
	WeightAccuracy     = 0.3
	WeightConsistency  = 0.2
	WeightTimeliness   = 0.2
)

// QualityReport aggregates data quality over a collection of records.
// All scores are in [0, 100].
type QualityReport struct {
	WindowDays   int       `json:"window_days"`
	TotalRecords int       `json:"total_records"`
	Completeness float64   `json:"completeness"`
	Accuracy     float64   `json:"accuracy"`
	Consistency  float64   `json:"consistency"`
	Timeliness   float64   `json:"timeliness"`
	OverallScore float64   `json:"overall_score"` // rounded to 1 decimal
	Grade        Grade     `json:"grade"`
	Issues       []string  `json:"issues,omitempty"`
	GeneratedAt  time.Time `json:"generated_at"`
}
