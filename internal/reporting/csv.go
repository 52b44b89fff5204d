package reporting

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"
)

// RenderCSV renders validation rows as CSV string.
func RenderCSV(rows []ValidationRow) string {
	records := [][]string{{"forecast_id", "company", "forecast_type", "severity", "upper_bound", "lower_bound", "findings"}}
	for _, r := range rows {
		records = append(records, []string{
			r.ForecastID,
			r.Company,
			r.ForecastType,
			r.Severity.String(),
			r.UpperBound,
			r.LowerBound,
			strings.Join(r.Findings, "; "),
		})
	}
	return writeAll(records)
}

// RenderAccuracyCSV renders accuracy rows as CSV string.
func RenderAccuracyCSV(rows []AccuracyRow) string {
	records := [][]string{{
		"forecast_id", "company", "forecast_type", "predicted", "actual",
		"variance", "variance_pct", "accuracy_pct", "rating",
	}}
	for _, r := range rows {
		records = append(records, []string{
			r.ForecastID,
			r.Company,
			r.ForecastType,
			r.Predicted,
			r.Actual,
			r.Variance,
			strconv.FormatFloat(r.VariancePercentage, 'f', 6, 64),
			strconv.FormatFloat(r.AccuracyPercentage, 'f', 6, 64),
			string(r.Rating),
		})
	}
	return writeAll(records)
}

func writeAll(records [][]string) string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	// bytes.Buffer writes cannot fail
	_ = w.WriteAll(records)
	return buf.String()
}
