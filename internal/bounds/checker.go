// Package bounds detects invalid prediction intervals and other logical
// inconsistencies in forecast records.
package bounds

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"forecast-guard/internal/domain"
)

// Confidence thresholds (percent).
var (
	confidenceMin      = decimal.Zero
	confidenceMax      = decimal.NewFromInt(100)
	confidenceCritical = decimal.NewFromInt(50)
	confidenceWarning  = decimal.NewFromInt(70)
)

// Checker evaluates forecast records. The zero value is not usable; use NewChecker.
type Checker struct {
	now func() time.Time // Injectable clock for deterministic output
}

// NewChecker creates a checker using the wall clock.
func NewChecker() *Checker {
	return &Checker{now: func() time.Time { return time.Now().UTC() }}
}

// WithClock sets a custom clock function for deterministic output.
func (c *Checker) WithClock(now func() time.Time) *Checker {
	c.now = now
	return c
}

var defaultChecker = NewChecker()

// Check evaluates a record with the default checker.
func Check(r *domain.ForecastRecord) domain.ValidationResult {
	return defaultChecker.Check(r)
}

// Check runs the bounds_logic, data_quality and confidence checks in that order.
// Overall severity is the maximum across checks; findings are concatenated in
// check order. Check never fails: data-shape problems become findings.
func (c *Checker) Check(r *domain.ForecastRecord) domain.ValidationResult {
	result := domain.ValidationResult{
		Severity:  domain.SeveritySkipped,
		CheckedAt: c.now(),
	}
	if r == nil {
		result.Findings = []domain.Finding{{
			Kind:     domain.CheckDataQuality,
			Severity: domain.SeveritySkipped,
			Message:  "record not set",
		}}
		return result
	}
	result.ForecastID = r.ID

	for _, check := range []struct {
		kind domain.CheckKind
		run  func(*domain.ForecastRecord) (domain.Severity, []string)
	}{
		{domain.CheckBoundsLogic, checkBoundsLogic},
		{domain.CheckDataQuality, checkDataQuality},
		{domain.CheckConfidence, checkConfidence},
	} {
		sev, messages := check.run(r)
		result.Checks = append(result.Checks, domain.CheckOutcome{Kind: check.kind, Severity: sev})
		result.Severity = domain.MaxSeverity(result.Severity, sev)
		for _, msg := range messages {
			result.Findings = append(result.Findings, domain.Finding{
				Kind:     check.kind,
				Severity: sev,
				Message:  msg,
			})
		}
	}

	return result
}

// CheckAll evaluates every record in order.
func (c *Checker) CheckAll(records []*domain.ForecastRecord) []domain.ValidationResult {
	results := make([]domain.ValidationResult, 0, len(records))
	for _, r := range records {
		results = append(results, c.Check(r))
	}
	return results
}

// IsInverted reports whether the record's bounds are set and upper <= lower.
func IsInverted(r *domain.ForecastRecord) bool {
	return r != nil && r.HasBounds() && r.UpperBound.Decimal.LessThanOrEqual(r.LowerBound.Decimal)
}

func checkBoundsLogic(r *domain.ForecastRecord) (domain.Severity, []string) {
	if !r.HasBounds() {
		return domain.SeveritySkipped, []string{"bounds not set"}
	}

	upper := r.UpperBound.Decimal
	lower := r.LowerBound.Decimal

	if upper.LessThanOrEqual(lower) {
		return domain.SeverityCritical, []string{fmt.Sprintf(
			"upper bound %s <= lower bound %s (difference %s)",
			upper.String(), lower.String(), lower.Sub(upper).String(),
		)}
	}

	if !r.PredictedAmount.Valid {
		return domain.SeverityOK, nil
	}
	predicted := r.PredictedAmount.Decimal

	if predicted.LessThan(lower) || predicted.GreaterThan(upper) {
		return domain.SeverityWarning, []string{fmt.Sprintf(
			"prediction outside bounds range (%s not in [%s, %s])",
			predicted.String(), lower.String(), upper.String(),
		)}
	}

	// spread / |predicted| > 1  <=>  spread > |predicted|
	if !predicted.IsZero() && upper.Sub(lower).GreaterThan(predicted.Abs()) {
		return domain.SeverityWarning, []string{"bounds spread exceeds 100% of prediction"}
	}

	return domain.SeverityOK, nil
}

func checkDataQuality(r *domain.ForecastRecord) (domain.Severity, []string) {
	var missing []string
	if strings.TrimSpace(r.Company) == "" {
		missing = append(missing, "company")
	}
	if strings.TrimSpace(r.Account) == "" {
		missing = append(missing, "account")
	}
	if strings.TrimSpace(r.ForecastType) == "" {
		missing = append(missing, "forecast_type")
	}
	if !r.PredictedAmount.Valid {
		missing = append(missing, "predicted_amount")
	}

	if len(missing) > 0 {
		return domain.SeverityCritical, []string{"missing required fields: " + strings.Join(missing, ", ")}
	}
	return domain.SeverityOK, nil
}

func checkConfidence(r *domain.ForecastRecord) (domain.Severity, []string) {
	if !r.ConfidenceScore.Valid {
		return domain.SeverityWarning, []string{"confidence score not set"}
	}

	score := r.ConfidenceScore.Decimal
	switch {
	case score.LessThan(confidenceMin) || score.GreaterThan(confidenceMax):
		return domain.SeverityCritical, []string{fmt.Sprintf("confidence score %s outside [0, 100]", score.String())}
	case score.LessThan(confidenceCritical):
		return domain.SeverityCritical, []string{fmt.Sprintf("critically low confidence (%s%%)", score.String())}
	case score.LessThan(confidenceWarning):
		return domain.SeverityWarning, []string{fmt.Sprintf("low confidence (%s%%)", score.String())}
	}
	return domain.SeverityOK, nil
}
