package domain

import "time"

// ValidationRun summarizes one validation cycle.
// Corresponds to validation_runs table.
type ValidationRun struct {
	RunID        string
	StartedAt    time.Time
	FinishedAt   time.Time
	Checked      int
	Critical     int
	Warning      int
	OK           int
	Skipped      int
	Fixed        int
	RepairErrors int
	QualityScore float64
	QualityGrade Grade
}

// RecordOutcome is the per-record history row written for each run.
// Corresponds to record_outcomes table.
type RecordOutcome struct {
	RunID        string
	ForecastID   string
	CheckedAt    time.Time
	Severity     Severity
	FindingCount int
	BoundsWidth  *float64 // upper - lower, nil when bounds not set
	AccuracyPct  *float64 // nil until an actual is observed
	Rating       Rating   // empty until an actual is observed
}
