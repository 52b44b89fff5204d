package bounds

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forecast-guard/internal/domain"
)

func dec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func validRecord() *domain.ForecastRecord {
	return &domain.ForecastRecord{
		ID:              "fc-1",
		Company:         "Acme Ltd",
		Account:         "Sales - AL",
		ForecastType:    domain.ForecastTypeRevenue,
		PredictedAmount: dec("100"),
		UpperBound:      dec("120"),
		LowerBound:      dec("80"),
		ConfidenceScore: dec("85"),
	}
}

func TestCheck_ValidRecord(t *testing.T) {
	result := Check(validRecord())

	assert.Equal(t, "fc-1", result.ForecastID)
	assert.Equal(t, domain.SeverityOK, result.Severity)
	assert.Empty(t, result.Findings)
	require.Len(t, result.Checks, 3)
	assert.Equal(t, domain.CheckBoundsLogic, result.Checks[0].Kind)
	assert.Equal(t, domain.CheckDataQuality, result.Checks[1].Kind)
	assert.Equal(t, domain.CheckConfidence, result.Checks[2].Kind)
}

func TestCheck_InvertedBoundsReportsDifference(t *testing.T) {
	r := validRecord()
	r.PredictedAmount = dec("153000")
	r.UpperBound = dec("152231.96")
	r.LowerBound = dec("154663.20")

	result := Check(r)

	assert.Equal(t, domain.SeverityCritical, result.Severity)
	assert.Equal(t, domain.SeverityCritical, result.SeverityOf(domain.CheckBoundsLogic))
	findings := result.FindingsOf(domain.CheckBoundsLogic)
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Message, "2431.24")
	assert.Contains(t, findings[0].Message, "152231.96")
	assert.True(t, IsInverted(r))
}

func TestCheck_EqualBoundsAreCritical(t *testing.T) {
	r := validRecord()
	r.UpperBound = dec("100")
	r.LowerBound = dec("100")

	result := Check(r)

	assert.Equal(t, domain.SeverityCritical, result.SeverityOf(domain.CheckBoundsLogic))
	assert.Contains(t, result.Findings[0].Message, "difference 0")
}

func TestCheck_BoundsLogic(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(r *domain.ForecastRecord)
		want      domain.Severity
		wantInMsg string
	}{
		{
			name:      "bounds not set",
			mutate:    func(r *domain.ForecastRecord) { r.UpperBound = decimal.NullDecimal{} },
			want:      domain.SeveritySkipped,
			wantInMsg: "bounds not set",
		},
		{
			name:      "prediction above upper",
			mutate:    func(r *domain.ForecastRecord) { r.PredictedAmount = dec("130") },
			want:      domain.SeverityWarning,
			wantInMsg: "prediction outside bounds range",
		},
		{
			name:      "prediction below lower",
			mutate:    func(r *domain.ForecastRecord) { r.PredictedAmount = dec("79.99") },
			want:      domain.SeverityWarning,
			wantInMsg: "prediction outside bounds range",
		},
		{
			name: "spread exceeds prediction",
			mutate: func(r *domain.ForecastRecord) {
				r.PredictedAmount = dec("10")
				r.UpperBound = dec("30")
				r.LowerBound = dec("5")
			},
			want:      domain.SeverityWarning,
			wantInMsg: "bounds spread exceeds 100% of prediction",
		},
		{
			name: "spread equal to prediction is ok",
			mutate: func(r *domain.ForecastRecord) {
				r.PredictedAmount = dec("10")
				r.UpperBound = dec("15")
				r.LowerBound = dec("5")
			},
			want: domain.SeverityOK,
		},
		{
			name: "zero prediction skips spread check",
			mutate: func(r *domain.ForecastRecord) {
				r.PredictedAmount = dec("0")
				r.UpperBound = dec("50")
				r.LowerBound = dec("-50")
			},
			want: domain.SeverityOK,
		},
		{
			name: "negative interval",
			mutate: func(r *domain.ForecastRecord) {
				r.PredictedAmount = dec("-100")
				r.UpperBound = dec("-90")
				r.LowerBound = dec("-110")
			},
			want: domain.SeverityOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRecord()
			tt.mutate(r)

			result := Check(r)

			assert.Equal(t, tt.want, result.SeverityOf(domain.CheckBoundsLogic))
			findings := result.FindingsOf(domain.CheckBoundsLogic)
			if tt.wantInMsg == "" {
				assert.Empty(t, findings)
				return
			}
			require.Len(t, findings, 1)
			assert.Contains(t, findings[0].Message, tt.wantInMsg)
		})
	}
}

func TestCheck_Confidence(t *testing.T) {
	tests := []struct {
		name  string
		score decimal.NullDecimal
		want  domain.Severity
	}{
		{"absent", decimal.NullDecimal{}, domain.SeverityWarning},
		{"above range", dec("150"), domain.SeverityCritical},
		{"below range", dec("-5"), domain.SeverityCritical},
		{"critically low", dec("49.9"), domain.SeverityCritical},
		{"low", dec("60"), domain.SeverityWarning},
		{"boundary 50", dec("50"), domain.SeverityWarning},
		{"boundary 70", dec("70"), domain.SeverityOK},
		{"max", dec("100"), domain.SeverityOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRecord()
			r.ConfidenceScore = tt.score

			result := Check(r)

			assert.Equal(t, tt.want, result.SeverityOf(domain.CheckConfidence))
			assert.Equal(t, tt.want, result.Severity)
		})
	}
}

func TestCheck_MissingRequiredFields(t *testing.T) {
	r := validRecord()
	r.Company = ""
	r.PredictedAmount = decimal.NullDecimal{}

	result := Check(r)

	assert.Equal(t, domain.SeverityCritical, result.Severity)
	assert.Equal(t, domain.SeverityCritical, result.SeverityOf(domain.CheckDataQuality))
	assert.Equal(t, domain.SeverityOK, result.SeverityOf(domain.CheckBoundsLogic))
	findings := result.FindingsOf(domain.CheckDataQuality)
	require.Len(t, findings, 1)
	assert.Equal(t, "missing required fields: company, predicted_amount", findings[0].Message)
}

func TestCheck_FindingsInCheckOrder(t *testing.T) {
	r := validRecord()
	r.UpperBound = dec("50")
	r.Account = ""
	r.ConfidenceScore = dec("65")

	result := Check(r)

	require.Len(t, result.Findings, 3)
	assert.Equal(t, domain.CheckBoundsLogic, result.Findings[0].Kind)
	assert.Equal(t, domain.CheckDataQuality, result.Findings[1].Kind)
	assert.Equal(t, domain.CheckConfidence, result.Findings[2].Kind)
	assert.Equal(t, domain.SeverityWarning, result.Findings[2].Severity)
	assert.Equal(t, domain.SeverityCritical, result.Severity)
}

func TestCheck_DoesNotMutateRecord(t *testing.T) {
	r := validRecord()
	r.UpperBound = dec("10")
	before := *r

	_ = Check(r)

	assert.Equal(t, before, *r)
}

func TestChecker_WithClock(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewChecker().WithClock(func() time.Time { return fixed })

	results := c.CheckAll([]*domain.ForecastRecord{validRecord(), validRecord()})

	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, fixed, r.CheckedAt)
	}
}

func TestCheck_NilRecord(t *testing.T) {
	result := Check(nil)

	assert.Equal(t, domain.SeveritySkipped, result.Severity)
	require.Len(t, result.Findings, 1)
	assert.True(t, strings.HasPrefix(result.Findings[0].Message, "record"))
}

func TestSummarize(t *testing.T) {
	inverted := validRecord()
	inverted.UpperBound = dec("10")
	warn := validRecord()
	warn.ConfidenceScore = dec("60")

	summary := Summarize(NewChecker().CheckAll([]*domain.ForecastRecord{validRecord(), inverted, warn}))

	assert.Equal(t, Summary{Total: 3, Critical: 1, Warning: 1, OK: 1, Inverted: 1}, summary)
}
