package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"forecast-guard/internal/domain"
	"forecast-guard/internal/observability"
	"forecast-guard/internal/storage"
)

// ForecastStore implements storage.ForecastStore using PostgreSQL.
type ForecastStore struct {
	pool *Pool
	now  func() time.Time
}

// NewForecastStore creates a new ForecastStore.
func NewForecastStore(pool *Pool) *ForecastStore {
	return &ForecastStore{
		pool: pool,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Compile-time interface check.
var _ storage.ForecastStore = (*ForecastStore)(nil)

const forecastColumns = `
	id, company, account, forecast_type, forecast_start_date, forecast_end_date,
	predicted_amount, upper_bound, lower_bound, confidence_score, actual_amount,
	created_at, updated_at, version, provenance
`

// Insert adds a new record. Returns ErrDuplicateKey if id exists.
func (s *ForecastStore) Insert(ctx context.Context, r *domain.ForecastRecord) (err error) {
	if r == nil || r.ID == "" {
		return storage.ErrInvalidInput
	}
	defer observe("insert_forecast", time.Now(), &err)

	provenance, err := marshalProvenance(r.Provenance)
	if err != nil {
		return err
	}

	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	updatedAt := r.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	query := `
		INSERT INTO forecasts (` + forecastColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err = s.pool.Exec(ctx, query,
		r.ID,
		r.Company,
		r.Account,
		r.ForecastType,
		r.ForecastStartDate,
		r.ForecastEndDate,
		r.PredictedAmount,
		r.UpperBound,
		r.LowerBound,
		r.ConfidenceScore,
		r.ActualAmount,
		createdAt,
		updatedAt,
		r.Version,
		provenance,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return wrapError("insert forecast", err)
	}
	return nil
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *ForecastStore) GetByID(ctx context.Context, id string) (_ *domain.ForecastRecord, err error) {
	defer observe("get_forecast", time.Now(), &err)

	query := `SELECT ` + forecastColumns + ` FROM forecasts WHERE id = $1`

	r, err := scanForecast(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, wrapError("get forecast by id", err)
	}
	return r, nil
}

// List retrieves records matching filter, ordered by created_at ASC, id ASC.
func (s *ForecastStore) List(ctx context.Context, filter storage.ForecastFilter) (_ []*domain.ForecastRecord, err error) {
	defer observe("list_forecasts", time.Now(), &err)

	where, args := buildFilter(filter)
	query := `SELECT ` + forecastColumns + ` FROM forecasts` + where + ` ORDER BY created_at ASC, id ASC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapError("list forecasts", err)
	}
	defer rows.Close()

	var records []*domain.ForecastRecord
	for rows.Next() {
		r, err := scanForecast(rows)
		if err != nil {
			return nil, fmt.Errorf("scan forecast row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("iterate forecast rows", err)
	}
	return records, nil
}

// Save writes r back if the stored version equals r.Version. Only the
// mutable columns (bounds, actual amount, confidence, provenance) are written.
func (s *ForecastStore) Save(ctx context.Context, r *domain.ForecastRecord) (err error) {
	if r == nil || r.ID == "" {
		return storage.ErrInvalidInput
	}
	defer observe("save_forecast", time.Now(), &err)

	provenance, err := marshalProvenance(r.Provenance)
	if err != nil {
		return err
	}
	updatedAt := s.now()

	query := `
		UPDATE forecasts
		SET upper_bound = $3,
		    lower_bound = $4,
		    confidence_score = $5,
		    actual_amount = $6,
		    provenance = $7,
		    updated_at = $8,
		    version = version + 1
		WHERE id = $1 AND version = $2
	`

	tag, err := s.pool.Exec(ctx, query,
		r.ID,
		r.Version,
		r.UpperBound,
		r.LowerBound,
		r.ConfidenceScore,
		r.ActualAmount,
		provenance,
		updatedAt,
	)
	if err != nil {
		return wrapError("save forecast", err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM forecasts WHERE id = $1)`, r.ID).Scan(&exists); err != nil {
			return wrapError("check forecast exists", err)
		}
		if !exists {
			return storage.ErrNotFound
		}
		return storage.ErrVersionConflict
	}

	r.Version++
	r.UpdatedAt = updatedAt
	return nil
}

func buildFilter(f storage.ForecastFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Company != "" {
		add("company = $%d", f.Company)
	}
	if f.ForecastType != "" {
		add("forecast_type = $%d", f.ForecastType)
	}
	if f.CreatedAfter != nil {
		add("created_at >= $%d", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		add("created_at <= $%d", *f.CreatedBefore)
	}
	if f.OnlyInvertedBounds {
		conds = append(conds, "upper_bound IS NOT NULL AND lower_bound IS NOT NULL AND upper_bound < lower_bound")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanForecast(row pgx.Row) (*domain.ForecastRecord, error) {
	var (
		r          domain.ForecastRecord
		provenance []byte
	)

	err := row.Scan(
		&r.ID,
		&r.Company,
		&r.Account,
		&r.ForecastType,
		&r.ForecastStartDate,
		&r.ForecastEndDate,
		&r.PredictedAmount,
		&r.UpperBound,
		&r.LowerBound,
		&r.ConfidenceScore,
		&r.ActualAmount,
		&r.CreatedAt,
		&r.UpdatedAt,
		&r.Version,
		&provenance,
	)
	if err != nil {
		return nil, err
	}

	if len(provenance) > 0 {
		if err := json.Unmarshal(provenance, &r.Provenance); err != nil {
			return nil, fmt.Errorf("decode provenance for %s: %w", r.ID, err)
		}
	}
	if len(r.Provenance) == 0 {
		r.Provenance = nil
	}
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return &r, nil
}

func marshalProvenance(events []domain.ProvenanceEvent) ([]byte, error) {
	if events == nil {
		events = []domain.ProvenanceEvent{}
	}
	data, err := json.Marshal(events)
	if err != nil {
		return nil, fmt.Errorf("encode provenance: %w", err)
	}
	return data, nil
}

func observe(operation string, start time.Time, err *error) {
	observability.RecordDBQuery("postgres", operation, time.Since(start).Seconds(), *err)
}
