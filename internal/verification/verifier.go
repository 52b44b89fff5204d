// Package verification re-reads repaired records from the store and checks
// that what was persisted matches what the repair engine reported.
package verification

import (
	"github.com/shopspring/decimal"

	"forecast-guard/internal/bounds"
	"forecast-guard/internal/domain"
)

// FieldDivergence represents a mismatch between the reported and stored values.
type FieldDivergence struct {
	Field    string `json:"field"`
	Expected any    `json:"expected"` // value reported by the repair
	Actual   any    `json:"actual"`   // value read back from the store
}

// Result contains the verification of a single repaired record.
type Result struct {
	ForecastID  string            `json:"forecast_id"`
	Match       bool              `json:"match"`
	Divergences []FieldDivergence `json:"divergences,omitempty"`
}

// Report contains results for a verified batch.
type Report struct {
	Total     int      `json:"total"`
	Matched   int      `json:"matched"`
	Divergent int      `json:"divergent"`
	Results   []Result `json:"results"`
}

// CompareRepair compares a stored record with the repair result that
// produced it and returns divergences.
func CompareRepair(stored *domain.ForecastRecord, repaired domain.RepairResult) []FieldDivergence {
	var divergences []FieldDivergence

	if repaired.After == nil {
		return []FieldDivergence{{Field: "After", Expected: "bounds snapshot", Actual: nil}}
	}
	want := *repaired.After

	if !nullEquals(stored.UpperBound, want.Upper) {
		divergences = append(divergences, FieldDivergence{
			Field:    "UpperBound",
			Expected: want.Upper.String(),
			Actual:   nullString(stored.UpperBound),
		})
	}

	if !nullEquals(stored.LowerBound, want.Lower) {
		divergences = append(divergences, FieldDivergence{
			Field:    "LowerBound",
			Expected: want.Lower.String(),
			Actual:   nullString(stored.LowerBound),
		})
	}

	// The stored interval must be well ordered regardless of what was reported.
	if bounds.IsInverted(stored) {
		divergences = append(divergences, FieldDivergence{
			Field:    "BoundsOrder",
			Expected: "upper > lower",
			Actual:   "upper <= lower",
		})
	}

	last, ok := lastEvent(stored)
	switch {
	case !ok:
		divergences = append(divergences, FieldDivergence{
			Field:    "Provenance",
			Expected: domain.ActionSwapBounds,
			Actual:   nil,
		})
	case last.Action != domain.ActionSwapBounds:
		divergences = append(divergences, FieldDivergence{
			Field:    "Provenance.Action",
			Expected: domain.ActionSwapBounds,
			Actual:   last.Action,
		})
	case !last.After.Upper.Equal(want.Upper) || !last.After.Lower.Equal(want.Lower):
		divergences = append(divergences, FieldDivergence{
			Field:    "Provenance.After",
			Expected: want,
			Actual:   last.After,
		})
	}

	return divergences
}

func lastEvent(r *domain.ForecastRecord) (domain.ProvenanceEvent, bool) {
	if len(r.Provenance) == 0 {
		return domain.ProvenanceEvent{}, false
	}
	return r.Provenance[len(r.Provenance)-1], true
}

func nullEquals(n decimal.NullDecimal, d decimal.Decimal) bool {
	return n.Valid && n.Decimal.Equal(d)
}

func nullString(n decimal.NullDecimal) any {
	if !n.Valid {
		return nil
	}
	return n.Decimal.String()
}
