package verification

import (
	"context"
	"errors"
	"fmt"

	"forecast-guard/internal/domain"
	"forecast-guard/internal/storage"
)

// ErrRecordNotFound is reported when a repaired record can no longer be read.
var ErrRecordNotFound = errors.New("repaired record not found")

// VerifyRepair reloads one repaired record and compares it with the result.
func VerifyRepair(ctx context.Context, store storage.ForecastStore, repaired domain.RepairResult) (*Result, error) {
	stored, err := store.GetByID(ctx, repaired.ForecastID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("load %s: %w", repaired.ForecastID, err)
	}

	divergences := CompareRepair(stored, repaired)
	return &Result{
		ForecastID:  repaired.ForecastID,
		Match:       len(divergences) == 0,
		Divergences: divergences,
	}, nil
}

// VerifyRepairs verifies every fixed record of a batch. Per-record failures
// are reported as divergences; only connectivity failures abort.
func VerifyRepairs(ctx context.Context, store storage.ForecastStore, batch *domain.BatchRepairResult) (*Report, error) {
	report := &Report{}
	if batch == nil {
		return report, nil
	}

	report.Total = len(batch.FixedDetails)
	report.Results = make([]Result, 0, report.Total)

	for _, fixed := range batch.FixedDetails {
		result, err := VerifyRepair(ctx, store, fixed)
		if err != nil {
			if errors.Is(err, storage.ErrUnavailable) || ctx.Err() != nil {
				return report, err
			}
			report.Results = append(report.Results, Result{
				ForecastID: fixed.ForecastID,
				Divergences: []FieldDivergence{
					{Field: "Error", Expected: nil, Actual: err.Error()},
				},
			})
			report.Divergent++
			continue
		}

		report.Results = append(report.Results, *result)
		if result.Match {
			report.Matched++
		} else {
			report.Divergent++
		}
	}

	return report, nil
}
