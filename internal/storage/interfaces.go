package storage

import (
	"context"
	"time"

	"forecast-guard/internal/domain"
)

// ForecastFilter narrows List results. Zero values match everything.
type ForecastFilter struct {
	Company      string
	ForecastType string

	// CreatedAfter and CreatedBefore bound created_at (inclusive).
	CreatedAfter  *time.Time
	CreatedBefore *time.Time

	// OnlyInvertedBounds restricts results to records with upper < lower.
	OnlyInvertedBounds bool

	// Limit caps the number of records returned. 0 means no limit.
	Limit int
}

// ForecastStore provides access to forecasts storage.
type ForecastStore interface {
	// Insert adds a new record. Returns ErrDuplicateKey if id exists.
	Insert(ctx context.Context, r *domain.ForecastRecord) error

	// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.ForecastRecord, error)

	// List retrieves records matching filter, ordered by created_at ASC, id ASC.
	List(ctx context.Context, filter ForecastFilter) ([]*domain.ForecastRecord, error)

	// Save atomically writes r back if the stored version equals r.Version,
	// then increments r.Version and sets r.UpdatedAt.
	// Returns ErrNotFound if the record does not exist and ErrVersionConflict
	// if it was modified since it was read.
	Save(ctx context.Context, r *domain.ForecastRecord) error
}

// ValidationRunStore provides access to validation_runs and record_outcomes storage.
type ValidationRunStore interface {
	// InsertRun adds a run summary. Returns ErrDuplicateKey if run_id exists.
	InsertRun(ctx context.Context, run *domain.ValidationRun) error

	// InsertOutcomes appends per-record outcomes.
	InsertOutcomes(ctx context.Context, outcomes []*domain.RecordOutcome) error

	// GetRun retrieves a run by ID. Returns ErrNotFound if not exists.
	GetRun(ctx context.Context, runID string) (*domain.ValidationRun, error)

	// ListRuns returns the most recent runs, newest first. limit <= 0 returns all.
	ListRuns(ctx context.Context, limit int) ([]*domain.ValidationRun, error)

	// GetOutcomesByForecast returns all outcomes for a record, ordered by checked_at ASC.
	GetOutcomesByForecast(ctx context.Context, forecastID string) ([]*domain.RecordOutcome, error)
}
