package reporting

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"forecast-guard/internal/domain"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Forecast Validation Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Validation Summary
	sb.WriteString("## Validation Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Records | %d |\n", r.Summary.Total))
	sb.WriteString(fmt.Sprintf("| CRITICAL | %d |\n", r.Summary.Critical))
	sb.WriteString(fmt.Sprintf("| WARNING | %d |\n", r.Summary.Warning))
	sb.WriteString(fmt.Sprintf("| OK | %d |\n", r.Summary.OK))
	sb.WriteString(fmt.Sprintf("| SKIPPED | %d |\n", r.Summary.Skipped))
	sb.WriteString(fmt.Sprintf("| Inverted Bounds | %d |\n", r.Summary.Inverted))
	sb.WriteString("\n")

	// Critical Records
	sb.WriteString("## Critical Records\n\n")
	if len(r.Critical) > 0 {
		sb.WriteString("| Forecast | Company | Type | Upper | Lower | Findings |\n")
		sb.WriteString("|----------|---------|------|-------|-------|----------|\n")
		for _, row := range r.Critical {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s |\n",
				row.ForecastID, row.Company, row.ForecastType,
				orDash(row.UpperBound), orDash(row.LowerBound),
				escapeCell(strings.Join(row.Findings, "; "))))
		}
	} else {
		sb.WriteString("No critical records.\n")
	}
	sb.WriteString("\n")

	// Accuracy
	sb.WriteString("## Forecast Accuracy\n\n")
	if len(r.Accuracy) > 0 {
		s := r.AccuracySummary
		sb.WriteString(fmt.Sprintf("Analyzed: %d | Mean accuracy: %.2f%% | MAPE: %.2f%%\n\n", s.Count, s.MeanAccuracy, s.MAPE))

		sb.WriteString("| Rating | Count |\n")
		sb.WriteString("|--------|-------|\n")
		for _, rating := range ratingOrder {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", rating, s.RatingCounts[rating]))
		}
		sb.WriteString("\n")

		sb.WriteString("| Forecast | Predicted | Actual | Variance | Variance% | Accuracy% | Rating |\n")
		sb.WriteString("|----------|-----------|--------|----------|-----------|-----------|--------|\n")
		for _, row := range r.Accuracy {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %.2f | %.2f | %s |\n",
				row.ForecastID, row.Predicted, row.Actual, row.Variance,
				row.VariancePercentage, row.AccuracyPercentage, row.Rating))
		}
	} else {
		sb.WriteString("No records with observed actuals.\n")
	}
	sb.WriteString("\n")

	// Quality
	q := r.Quality
	sb.WriteString("## Data Quality\n\n")
	if r.WindowDays > 0 {
		sb.WriteString(fmt.Sprintf("Window: last %d days (%d records)\n\n", r.WindowDays, q.TotalRecords))
	} else {
		sb.WriteString(fmt.Sprintf("Window: all records (%d records)\n\n", q.TotalRecords))
	}
	sb.WriteString("| Score | Value |\n")
	sb.WriteString("|-------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Completeness | %.1f |\n", q.Completeness))
	sb.WriteString(fmt.Sprintf("| Accuracy | %.1f |\n", q.Accuracy))
	sb.WriteString(fmt.Sprintf("| Consistency | %.1f |\n", q.Consistency))
	sb.WriteString(fmt.Sprintf("| Timeliness | %.1f |\n", q.Timeliness))
	sb.WriteString(fmt.Sprintf("| **Overall** | **%.1f (%s)** |\n", q.OverallScore, q.Grade))
	sb.WriteString("\n")

	if len(q.Issues) > 0 {
		issues := append([]string(nil), q.Issues...)
		sort.Strings(issues)
		sb.WriteString("### Issues\n\n")
		for _, issue := range issues {
			sb.WriteString(fmt.Sprintf("- %s\n", issue))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

var ratingOrder = []domain.Rating{
	domain.RatingExcellent,
	domain.RatingGood,
	domain.RatingFair,
	domain.RatingPoor,
	domain.RatingVeryPoor,
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
