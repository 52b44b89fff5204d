package bounds

import "forecast-guard/internal/domain"

// Summary counts validation results by severity.
type Summary struct {
	Total    int `json:"total"`
	Critical int `json:"critical"`
	Warning  int `json:"warning"`
	OK       int `json:"ok"`
	Skipped  int `json:"skipped"`
	// Inverted counts records whose bounds_logic check is CRITICAL.
	Inverted int `json:"inverted"`
}

// Summarize counts results by overall severity.
func Summarize(results []domain.ValidationResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Severity {
		case domain.SeverityCritical:
			s.Critical++
		case domain.SeverityWarning:
			s.Warning++
		case domain.SeverityOK:
			s.OK++
		default:
			s.Skipped++
		}
		if r.SeverityOf(domain.CheckBoundsLogic) == domain.SeverityCritical {
			s.Inverted++
		}
	}
	return s
}
