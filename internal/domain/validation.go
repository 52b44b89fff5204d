package domain

import (
	"fmt"
	"strings"
	"time"
)

// Severity is the outcome class of a validation check.
// Ordering: SKIPPED < OK < WARNING < CRITICAL.
type Severity int

const (
	SeveritySkipped Severity = iota
	SeverityOK
	SeverityWarning
	SeverityCritical
)

var severityNames = map[Severity]string{
	SeveritySkipped:  "SKIPPED",
	SeverityOK:       "OK",
	SeverityWarning:  "WARNING",
	SeverityCritical: "CRITICAL",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name.
func (s *Severity) UnmarshalText(b []byte) error {
	parsed, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity parses a severity name, case-insensitive.
func ParseSeverity(name string) (Severity, error) {
	for s, n := range severityNames {
		if strings.EqualFold(n, name) {
			return s, nil
		}
	}
	return SeveritySkipped, fmt.Errorf("unknown severity %q", name)
}

// MaxSeverity returns the more severe of a and b.
func MaxSeverity(a, b Severity) Severity {
	if b > a {
		return b
	}
	return a
}

// CheckKind tags a finding with the check that produced it.
type CheckKind string

const (
	CheckBoundsLogic CheckKind = "bounds_logic"
	CheckDataQuality CheckKind = "data_quality"
	CheckConfidence  CheckKind = "confidence"
)

// Finding is one human-readable result of a check.
type Finding struct {
	Kind     CheckKind `json:"check_kind"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
}

// CheckOutcome is the severity a single check resolved to, recorded
// even when the check produced no finding text.
type CheckOutcome struct {
	Kind     CheckKind `json:"check_kind"`
	Severity Severity  `json:"severity"`
}

// ValidationResult is the output of evaluating one ForecastRecord.
type ValidationResult struct {
	ForecastID string         `json:"forecast_id"`
	Severity   Severity       `json:"severity"`
	Checks     []CheckOutcome `json:"checks"`
	Findings   []Finding      `json:"findings"`
	CheckedAt  time.Time      `json:"checked_at"`
}

// SeverityOf returns the severity the given check resolved to.
// Returns SeveritySkipped if the check did not run.
func (v ValidationResult) SeverityOf(kind CheckKind) Severity {
	for _, c := range v.Checks {
		if c.Kind == kind {
			return c.Severity
		}
	}
	return SeveritySkipped
}

// HasCriticalOutside reports whether any check other than kind is CRITICAL.
func (v ValidationResult) HasCriticalOutside(kind CheckKind) bool {
	for _, c := range v.Checks {
		if c.Kind != kind && c.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// FindingsOf returns the findings produced by one check.
func (v ValidationResult) FindingsOf(kind CheckKind) []Finding {
	var out []Finding
	for _, f := range v.Findings {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}
