package repair

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"forecast-guard/internal/domain"
	"forecast-guard/internal/observability"
	"forecast-guard/internal/storage"
)

// Engine applies repairs and writes them back through a ForecastStore.
type Engine struct {
	store   storage.ForecastStore
	limiter *rate.Limiter
	dryRun  bool
	logger  zerolog.Logger
	now     func() time.Time
}

// NewEngine creates an engine writing to store.
func NewEngine(store storage.ForecastStore) *Engine {
	return &Engine{
		store:  store,
		logger: zerolog.Nop(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithLimiter throttles store writes. nil disables throttling.
func (e *Engine) WithLimiter(l *rate.Limiter) *Engine {
	e.limiter = l
	return e
}

// WithDryRun computes repairs without saving them.
func (e *Engine) WithDryRun(dryRun bool) *Engine {
	e.dryRun = dryRun
	return e
}

// WithLogger sets the logger.
func (e *Engine) WithLogger(l zerolog.Logger) *Engine {
	e.logger = l
	return e
}

// WithClock sets a custom clock function for deterministic output.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// DryRun reports whether the engine skips writes.
func (e *Engine) DryRun() bool {
	return e.dryRun
}

// Repair loads a record, repairs it and saves it when fixed.
// Returns storage.ErrNotFound when the id is unknown and
// storage.ErrVersionConflict when the record changed since it was read.
func (e *Engine) Repair(ctx context.Context, id string) (*domain.RepairResult, error) {
	r, err := e.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get forecast %s: %w", id, err)
	}

	result, err := e.repairAndSave(ctx, r)
	if err != nil {
		return &result, err
	}
	return &result, nil
}

// RepairAll repairs every record independently. Per-record save failures
// are collected into ErrorDetails and processing continues. A connectivity
// failure (storage.ErrUnavailable) or context cancellation stops the batch;
// the partial result is returned together with the error.
func (e *Engine) RepairAll(ctx context.Context, records []*domain.ForecastRecord) (*domain.BatchRepairResult, error) {
	batch := &domain.BatchRepairResult{
		Total:        len(records),
		FixedDetails: []domain.RepairResult{},
		ErrorDetails: []domain.RepairError{},
	}

	for _, r := range records {
		if err := ctx.Err(); err != nil {
			batch.Aborted = true
			return batch, err
		}
		if r == nil {
			continue
		}

		result, err := e.repairAndSave(ctx, r.Clone())
		if err != nil {
			kind := errorKind(err)
			batch.Errors++
			batch.ErrorDetails = append(batch.ErrorDetails, domain.RepairError{
				ForecastID: r.ID,
				Kind:       kind,
				Message:    err.Error(),
			})
			observability.RecordRepairError(kind)

			if errors.Is(err, storage.ErrUnavailable) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				batch.Aborted = true
				observability.RecordRepairAborted()
				e.logger.Error().Err(err).Str("forecast_id", r.ID).Msg("batch repair aborted")
				return batch, err
			}
			continue
		}

		switch result.Status {
		case domain.RepairStatusFixed:
			batch.Fixed++
			batch.FixedDetails = append(batch.FixedDetails, result)
		case domain.RepairStatusSkipped:
			batch.Skipped++
			batch.SkippedDetails = append(batch.SkippedDetails, result)
		}
	}

	e.logger.Info().
		Int("total", batch.Total).
		Int("fixed", batch.Fixed).
		Int("skipped", batch.Skipped).
		Int("errors", batch.Errors).
		Bool("dry_run", e.dryRun).
		Msg("batch repair complete")

	return batch, nil
}

func (e *Engine) repairAndSave(ctx context.Context, r *domain.ForecastRecord) (domain.RepairResult, error) {
	result := RepairRecord(r, e.now())
	observability.RecordRepair(string(result.Status))

	switch result.Status {
	case domain.RepairStatusSkipped:
		e.logger.Warn().Str("forecast_id", result.ForecastID).Str("reason", result.Reason).Msg("repair skipped")
		return result, nil
	case domain.RepairStatusNotNeeded:
		return result, nil
	}

	if e.dryRun {
		e.logger.Info().Str("forecast_id", r.ID).Msg("dry run: bounds would be swapped")
		return result, nil
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return result, fmt.Errorf("wait for write slot: %w", err)
		}
	}

	if err := e.store.Save(ctx, r); err != nil {
		return result, fmt.Errorf("save forecast %s: %w", r.ID, err)
	}

	e.logger.Info().
		Str("forecast_id", r.ID).
		Str("before_upper", result.Before.Upper.String()).
		Str("before_lower", result.Before.Lower.String()).
		Int64("version", r.Version).
		Msg("bounds swapped")

	return result, nil
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return domain.RepairErrNotFound
	case errors.Is(err, storage.ErrVersionConflict):
		return domain.RepairErrConflict
	default:
		return domain.RepairErrStoreWrite
	}
}
