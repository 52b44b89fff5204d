package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ForecastRecord is one forecasting unit under evaluation.
// Corresponds to the forecasts table.
type ForecastRecord struct {
	ID           string // opaque unique identifier
	Company      string
	Account      string
	ForecastType string // cash_flow, revenue, expense, ...

	ForecastStartDate *time.Time // nullable
	ForecastEndDate   *time.Time // nullable

	PredictedAmount decimal.NullDecimal // model point estimate
	UpperBound      decimal.NullDecimal
	LowerBound      decimal.NullDecimal
	ConfidenceScore decimal.NullDecimal // expected in [0, 100]
	ActualAmount    decimal.NullDecimal // set once ground truth is observed

	CreatedAt time.Time
	UpdatedAt time.Time

	// Version is incremented by every successful save and used
	// for optimistic concurrency on write-back.
	Version int64

	// Provenance is append-only.
	Provenance []ProvenanceEvent
}

// Forecast types seen in the source documents.
const (
	ForecastTypeCashFlow       = "cash_flow"
	ForecastTypeRevenue        = "revenue"
	ForecastTypeExpense        = "expense"
	ForecastTypeSales          = "sales"
	ForecastTypeInventory      = "inventory"
	ForecastTypeBudgetVariance = "budget_variance"
)

// Provenance actions.
const (
	ActionSwapBounds = "swap_bounds"
)

// BoundsSnapshot captures the interval endpoints at one point in time.
type BoundsSnapshot struct {
	Upper decimal.Decimal `json:"upper"`
	Lower decimal.Decimal `json:"lower"`
}

// ProvenanceEvent is one entry of a record's repair history.
type ProvenanceEvent struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Action    string         `json:"action"`
	Before    BoundsSnapshot `json:"before"`
	After     BoundsSnapshot `json:"after"`
}

// HasBounds reports whether both interval endpoints are set.
func (r *ForecastRecord) HasBounds() bool {
	return r.UpperBound.Valid && r.LowerBound.Valid
}

// Bounds returns the current endpoints. Only meaningful when HasBounds is true.
func (r *ForecastRecord) Bounds() BoundsSnapshot {
	return BoundsSnapshot{Upper: r.UpperBound.Decimal, Lower: r.LowerBound.Decimal}
}

// Clone returns a deep copy. Stores use it so callers never share
// provenance slices or time pointers with stored state.
func (r *ForecastRecord) Clone() *ForecastRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.ForecastStartDate != nil {
		t := *r.ForecastStartDate
		c.ForecastStartDate = &t
	}
	if r.ForecastEndDate != nil {
		t := *r.ForecastEndDate
		c.ForecastEndDate = &t
	}
	if r.Provenance != nil {
		c.Provenance = make([]ProvenanceEvent, len(r.Provenance))
		copy(c.Provenance, r.Provenance)
	}
	return &c
}
