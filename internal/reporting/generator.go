// Package reporting renders validation, accuracy and quality results of a
// forecast collection as Markdown and CSV.
package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"forecast-guard/internal/bounds"
	"forecast-guard/internal/domain"
	"forecast-guard/internal/quality"
	"forecast-guard/internal/storage"
	"forecast-guard/internal/variance"
)

// Generator produces reports from stored forecasts.
type Generator struct {
	store storage.ForecastStore
	now   func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(store storage.ForecastStore) *Generator {
	return &Generator{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate loads every record matching filter and builds the report.
// windowDays restricts the quality section only.
func (g *Generator) Generate(ctx context.Context, filter storage.ForecastFilter, windowDays int) (*Report, error) {
	records, err := g.store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list forecasts: %w", err)
	}
	return g.Build(records, windowDays), nil
}

// Build produces a report from already loaded records.
func (g *Generator) Build(records []*domain.ForecastRecord, windowDays int) *Report {
	now := g.now()
	checker := bounds.NewChecker().WithClock(func() time.Time { return now })
	results := checker.CheckAll(records)

	report := &Report{
		GeneratedAt: now,
		WindowDays:  windowDays,
		Summary:     bounds.Summarize(results),
		Critical:    []ValidationRow{},
		Accuracy:    []AccuracyRow{},
		Quality:     quality.ComputeReport(records, windowDays, now),
	}

	var analyzed []domain.AccuracyResult
	for i, r := range records {
		if r == nil {
			continue
		}
		if results[i].Severity == domain.SeverityCritical {
			report.Critical = append(report.Critical, validationRow(r, results[i]))
		}
		if acc, ok := variance.AnalyzeRecord(r); ok {
			analyzed = append(analyzed, acc)
			report.Accuracy = append(report.Accuracy, accuracyRow(r, acc))
		}
	}
	report.AccuracySummary = variance.Summarize(analyzed)

	sort.Slice(report.Critical, func(i, j int) bool {
		return report.Critical[i].ForecastID < report.Critical[j].ForecastID
	})
	sort.Slice(report.Accuracy, func(i, j int) bool {
		return report.Accuracy[i].ForecastID < report.Accuracy[j].ForecastID
	})

	return report
}

func validationRow(r *domain.ForecastRecord, v domain.ValidationResult) ValidationRow {
	row := ValidationRow{
		ForecastID:   r.ID,
		Company:      r.Company,
		ForecastType: r.ForecastType,
		Severity:     v.Severity,
		UpperBound:   nullString(r.UpperBound),
		LowerBound:   nullString(r.LowerBound),
	}
	for _, f := range v.Findings {
		row.Findings = append(row.Findings, f.Message)
	}
	return row
}

func accuracyRow(r *domain.ForecastRecord, a domain.AccuracyResult) AccuracyRow {
	return AccuracyRow{
		ForecastID:         r.ID,
		Company:            r.Company,
		ForecastType:       r.ForecastType,
		Predicted:          a.Predicted.String(),
		Actual:             a.Actual.String(),
		Variance:           a.Variance.String(),
		VariancePercentage: a.VariancePercentage,
		AccuracyPercentage: a.AccuracyPercentage,
		Rating:             a.Rating,
	}
}

func nullString(n decimal.NullDecimal) string {
	if !n.Valid {
		return ""
	}
	return n.Decimal.String()
}
