package reporting

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"forecast-guard/internal/domain"
	"forecast-guard/internal/storage"
	"forecast-guard/internal/storage/memory"
)

var fixedTime = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

func nd(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func setupTestData(t *testing.T) *memory.ForecastStore {
	ctx := context.Background()
	store := memory.NewForecastStore()

	records := []*domain.ForecastRecord{
		{
			ID: "fc-1", Company: "Acme Ltd", Account: "Cash - AL", ForecastType: domain.ForecastTypeCashFlow,
			PredictedAmount: nd("153000"), UpperBound: nd("152231.96"), LowerBound: nd("154663.20"),
			ConfidenceScore: nd("85"), ActualAmount: nd("150000"),
			CreatedAt: fixedTime.Add(-2 * time.Hour),
		},
		{
			ID: "fc-2", Company: "Acme Ltd", Account: "Sales", ForecastType: domain.ForecastTypeRevenue,
			PredictedAmount: nd("155000"), UpperBound: nd("160000"), LowerBound: nd("150000"),
			ConfidenceScore: nd("90"), ActualAmount: nd("155000"),
			CreatedAt: fixedTime.Add(-time.Hour),
		},
		{
			ID: "fc-3", Company: "Acme Ltd", ForecastType: "",
			PredictedAmount: nd("1000"), UpperBound: nd("1100"), LowerBound: nd("900"),
			ConfidenceScore: nd("75"),
			CreatedAt: fixedTime.Add(-30 * time.Minute),
		},
	}
	for _, r := range records {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert forecast failed: %v", err)
		}
	}
	return store
}

func TestGenerator_Generate(t *testing.T) {
	store := setupTestData(t)
	gen := NewGenerator(store).WithClock(func() time.Time { return fixedTime })

	report, err := gen.Generate(context.Background(), storage.ForecastFilter{}, 30)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !report.GeneratedAt.Equal(fixedTime) {
		t.Errorf("GeneratedAt = %v, want %v", report.GeneratedAt, fixedTime)
	}
	if report.Summary.Total != 3 || report.Summary.Critical != 2 || report.Summary.OK != 1 {
		t.Errorf("unexpected summary: %+v", report.Summary)
	}
	if report.Summary.Inverted != 1 {
		t.Errorf("Inverted = %d, want 1", report.Summary.Inverted)
	}

	if len(report.Critical) != 2 || report.Critical[0].ForecastID != "fc-1" || report.Critical[1].ForecastID != "fc-3" {
		t.Fatalf("unexpected critical rows: %+v", report.Critical)
	}
	if !strings.Contains(report.Critical[0].Findings[0], "upper bound 152231.96 <= lower bound") {
		t.Errorf("unexpected finding: %q", report.Critical[0].Findings[0])
	}

	if len(report.Accuracy) != 2 {
		t.Fatalf("expected 2 accuracy rows, got %d", len(report.Accuracy))
	}
	if report.Accuracy[0].ForecastID != "fc-1" || report.Accuracy[0].Variance != "3000" {
		t.Errorf("unexpected accuracy row: %+v", report.Accuracy[0])
	}
	if report.AccuracySummary.Count != 2 || report.AccuracySummary.RatingCounts[domain.RatingExcellent] != 2 {
		t.Errorf("unexpected accuracy summary: %+v", report.AccuracySummary)
	}

	if report.Quality.TotalRecords != 3 || report.Quality.WindowDays != 30 {
		t.Errorf("unexpected quality report: %+v", report.Quality)
	}
}

func TestGenerator_EmptyStore(t *testing.T) {
	gen := NewGenerator(memory.NewForecastStore()).WithClock(func() time.Time { return fixedTime })

	report, err := gen.Generate(context.Background(), storage.ForecastFilter{}, 0)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if report.Summary.Total != 0 || len(report.Critical) != 0 || len(report.Accuracy) != 0 {
		t.Errorf("expected empty report, got %+v", report)
	}
	if report.Quality.Grade != domain.GradeF {
		t.Errorf("Grade = %s, want F", report.Quality.Grade)
	}

	md := RenderMarkdown(report)
	for _, want := range []string{"No critical records.", "No records with observed actuals.", "Window: all records (0 records)"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderMarkdown(t *testing.T) {
	store := setupTestData(t)
	report, err := NewGenerator(store).WithClock(func() time.Time { return fixedTime }).
		Generate(context.Background(), storage.ForecastFilter{}, 30)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	md := RenderMarkdown(report)

	for _, want := range []string{
		"# Forecast Validation Report",
		"Generated: 2025-07-01T12:00:00Z",
		"| CRITICAL | 2 |",
		"| Inverted Bounds | 1 |",
		"| fc-1 | Acme Ltd | cash_flow |",
		"| Excellent | 2 |",
		"Window: last 30 days (3 records)",
		"| **Overall** |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderCSV_QuotesFindings(t *testing.T) {
	rows := []ValidationRow{{
		ForecastID: "fc-3",
		Company:    "Acme Ltd",
		Severity:   domain.SeverityCritical,
		Findings:   []string{"missing required fields: account, forecast_type"},
	}}

	out := RenderCSV(rows)

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("rendered CSV does not parse: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header + 1 row, got %d", len(records))
	}
	if len(records[1]) != 7 {
		t.Fatalf("expected 7 columns, got %d", len(records[1]))
	}
	if records[1][3] != "CRITICAL" || records[1][6] != "missing required fields: account, forecast_type" {
		t.Errorf("unexpected row: %v", records[1])
	}
}

func TestRenderAccuracyCSV(t *testing.T) {
	out := RenderAccuracyCSV([]AccuracyRow{{
		ForecastID: "fc-1", Predicted: "110", Actual: "100", Variance: "10",
		VariancePercentage: 10, AccuracyPercentage: 90, Rating: domain.RatingGood,
	}})

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[1] != "fc-1,,,110,100,10,10.000000,90.000000,Good" {
		t.Errorf("unexpected row: %q", lines[1])
	}
}

func TestWriteFiles(t *testing.T) {
	store := setupTestData(t)
	report, err := NewGenerator(store).WithClock(func() time.Time { return fixedTime }).
		Generate(context.Background(), storage.ForecastFilter{}, 30)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "out")
	paths, err := WriteFiles(dir, report)
	if err != nil {
		t.Fatalf("WriteFiles failed: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("expected 3 files, got %d", len(paths))
	}

	for _, name := range []string{ReportFile, CriticalFile, AccuracyFile} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Errorf("read %s: %v", name, err)
			continue
		}
		if len(data) == 0 {
			t.Errorf("%s is empty", name)
		}
	}
}
