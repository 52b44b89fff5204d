package clickhouse

import (
	"context"
	"fmt"
	"time"

	"forecast-guard/internal/domain"
	"forecast-guard/internal/observability"
	"forecast-guard/internal/storage"
)

// ValidationRunStore implements storage.ValidationRunStore using ClickHouse.
type ValidationRunStore struct {
	conn *Conn
}

// NewValidationRunStore creates a new ValidationRunStore.
func NewValidationRunStore(conn *Conn) *ValidationRunStore {
	return &ValidationRunStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ValidationRunStore = (*ValidationRunStore)(nil)

const runColumns = `
	run_id, started_at, finished_at,
	checked, critical, warning, ok, skipped, fixed, repair_errors,
	quality_score, quality_grade
`

// InsertRun adds a run summary. Returns ErrDuplicateKey if run_id exists.
func (s *ValidationRunStore) InsertRun(ctx context.Context, run *domain.ValidationRun) (err error) {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}
	defer observe("insert_run", time.Now(), &err)

	// ReplacingMergeTree would silently replace; keep insert-once semantics.
	exists, err := s.exists(ctx, run.RunID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	query := `INSERT INTO validation_runs (` + runColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	err = s.conn.Exec(ctx, query,
		run.RunID, run.StartedAt, run.FinishedAt,
		uint32(run.Checked), uint32(run.Critical), uint32(run.Warning), uint32(run.OK),
		uint32(run.Skipped), uint32(run.Fixed), uint32(run.RepairErrors),
		run.QualityScore, string(run.QualityGrade),
	)
	if err != nil {
		return fmt.Errorf("insert validation run: %w", err)
	}
	return nil
}

// InsertOutcomes appends per-record outcomes in one batch.
func (s *ValidationRunStore) InsertOutcomes(ctx context.Context, outcomes []*domain.RecordOutcome) (err error) {
	if len(outcomes) == 0 {
		return nil
	}
	for _, o := range outcomes {
		if o == nil || o.RunID == "" || o.ForecastID == "" {
			return storage.ErrInvalidInput
		}
	}
	defer observe("insert_outcomes", time.Now(), &err)

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO record_outcomes (
			run_id, forecast_id, checked_at, severity, finding_count,
			bounds_width, accuracy_pct, rating
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, o := range outcomes {
		err = batch.Append(
			o.RunID, o.ForecastID, o.CheckedAt, o.Severity.String(), uint32(o.FindingCount),
			o.BoundsWidth, o.AccuracyPct, string(o.Rating),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID. Returns ErrNotFound if not exists.
func (s *ValidationRunStore) GetRun(ctx context.Context, runID string) (*domain.ValidationRun, error) {
	query := `SELECT ` + runColumns + ` FROM validation_runs FINAL WHERE run_id = ? LIMIT 1`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	defer rows.Close()

	runs, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, storage.ErrNotFound
	}
	return runs[0], nil
}

// ListRuns returns the most recent runs, newest first.
func (s *ValidationRunStore) ListRuns(ctx context.Context, limit int) ([]*domain.ValidationRun, error) {
	query := `SELECT ` + runColumns + ` FROM validation_runs FINAL ORDER BY started_at DESC, run_id ASC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// GetOutcomesByForecast returns all outcomes for a record, ordered by checked_at ASC.
func (s *ValidationRunStore) GetOutcomesByForecast(ctx context.Context, forecastID string) ([]*domain.RecordOutcome, error) {
	query := `
		SELECT run_id, forecast_id, checked_at, severity, finding_count,
		       bounds_width, accuracy_pct, rating
		FROM record_outcomes
		WHERE forecast_id = ?
		ORDER BY checked_at ASC, run_id ASC
	`

	rows, err := s.conn.Query(ctx, query, forecastID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []*domain.RecordOutcome
	for rows.Next() {
		var (
			o        domain.RecordOutcome
			severity string
			findings uint32
			rating   string
		)
		if err := rows.Scan(
			&o.RunID, &o.ForecastID, &o.CheckedAt, &severity, &findings,
			&o.BoundsWidth, &o.AccuracyPct, &rating,
		); err != nil {
			return nil, fmt.Errorf("scan outcome row: %w", err)
		}

		sev, err := domain.ParseSeverity(severity)
		if err != nil {
			return nil, fmt.Errorf("outcome %s/%s: %w", o.RunID, o.ForecastID, err)
		}
		o.Severity = sev
		o.FindingCount = int(findings)
		o.Rating = domain.Rating(rating)
		o.CheckedAt = o.CheckedAt.UTC()
		outcomes = append(outcomes, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcome rows: %w", err)
	}
	return outcomes, nil
}

func (s *ValidationRunStore) exists(ctx context.Context, runID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM validation_runs FINAL WHERE run_id = ?`, runID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// chRows is the subset of driver.Rows used for scanning.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanRuns(rows chRows) ([]*domain.ValidationRun, error) {
	var runs []*domain.ValidationRun

	for rows.Next() {
		var (
			r                              domain.ValidationRun
			checked, critical, warning, ok uint32
			skipped, fixed, repairErrors   uint32
			grade                          string
		)
		if err := rows.Scan(
			&r.RunID, &r.StartedAt, &r.FinishedAt,
			&checked, &critical, &warning, &ok, &skipped, &fixed, &repairErrors,
			&r.QualityScore, &grade,
		); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}

		r.Checked, r.Critical, r.Warning, r.OK = int(checked), int(critical), int(warning), int(ok)
		r.Skipped, r.Fixed, r.RepairErrors = int(skipped), int(fixed), int(repairErrors)
		r.QualityGrade = domain.Grade(grade)
		r.StartedAt = r.StartedAt.UTC()
		r.FinishedAt = r.FinishedAt.UTC()
		runs = append(runs, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

func observe(operation string, start time.Time, err *error) {
	observability.RecordDBQuery("clickhouse", operation, time.Since(start).Seconds(), *err)
}
