// Package repair corrects inverted prediction intervals by swapping their
// endpoints and records every correction in the record's provenance log.
package repair

import (
	"time"

	"github.com/google/uuid"

	"forecast-guard/internal/bounds"
	"forecast-guard/internal/domain"
)

// Skip reasons.
const (
	ReasonEqualBounds   = "equal bounds cannot be repaired by swapping"
	ReasonOtherCritical = "other critical findings present"
	ReasonBoundsNotSet  = "bounds not set"
)

// newEventID is replaced in tests for deterministic provenance.
var newEventID = func() string { return uuid.NewString() }

// RepairRecord swaps the bounds of r in place when the bounds_logic check is
// CRITICAL with upper strictly below lower and no other check is CRITICAL.
// Any other record is left untouched.
func RepairRecord(r *domain.ForecastRecord, now time.Time) domain.RepairResult {
	checker := bounds.NewChecker().WithClock(func() time.Time { return now })
	before := checker.Check(r)

	result := domain.RepairResult{
		Status:     domain.RepairStatusNotNeeded,
		Validation: before,
	}
	if r == nil {
		result.Status = domain.RepairStatusSkipped
		result.Reason = "record not set"
		return result
	}
	result.ForecastID = r.ID

	if !r.HasBounds() {
		result.Status = domain.RepairStatusSkipped
		result.Reason = ReasonBoundsNotSet
		return result
	}
	if before.SeverityOf(domain.CheckBoundsLogic) != domain.SeverityCritical {
		return result
	}

	snapshot := r.Bounds()
	result.Before = &snapshot

	if snapshot.Upper.Equal(snapshot.Lower) {
		result.Status = domain.RepairStatusSkipped
		result.Reason = ReasonEqualBounds
		return result
	}
	if before.HasCriticalOutside(domain.CheckBoundsLogic) {
		result.Status = domain.RepairStatusSkipped
		result.Reason = ReasonOtherCritical
		return result
	}

	r.UpperBound, r.LowerBound = r.LowerBound, r.UpperBound
	after := r.Bounds()
	r.Provenance = append(r.Provenance, domain.ProvenanceEvent{
		ID:        newEventID(),
		Timestamp: now,
		Action:    domain.ActionSwapBounds,
		Before:    snapshot,
		After:     after,
	})

	result.Status = domain.RepairStatusFixed
	result.After = &after
	result.Validation = checker.Check(r)
	return result
}
