package reporting

import (
	"os"
	"path/filepath"
)

// Output file names written by WriteFiles.
const (
	ReportFile     = "VALIDATION_REPORT.md"
	CriticalFile   = "critical_records.csv"
	AccuracyFile   = "accuracy.csv"
	dirPermissions = 0755
)

// WriteFiles renders the report into dir and returns the written paths.
func WriteFiles(dir string, r *Report) ([]string, error) {
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, err
	}

	outputs := []struct {
		name    string
		content string
	}{
		{ReportFile, RenderMarkdown(r)},
		{CriticalFile, RenderCSV(r.Critical)},
		{AccuracyFile, RenderAccuracyCSV(r.Accuracy)},
	}

	paths := make([]string, 0, len(outputs))
	for _, out := range outputs {
		path := filepath.Join(dir, out.name)
		if err := os.WriteFile(path, []byte(out.content), 0644); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
