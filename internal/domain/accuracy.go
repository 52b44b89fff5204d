package domain

import "github.com/shopspring/decimal"

// Rating is the accuracy tier derived from AccuracyPercentage.
type Rating string

const (
	RatingExcellent Rating = "Excellent"
	RatingGood      Rating = "Good"
	RatingFair      Rating = "Fair"
	RatingPoor      Rating = "Poor"
	RatingVeryPoor  Rating = "Very Poor"
)

// AccuracyResult compares a prediction with the observed actual value.
type AccuracyResult struct {
	Predicted          decimal.Decimal `json:"predicted"`
	Actual             decimal.Decimal `json:"actual"`
	Variance           decimal.Decimal `json:"variance"`            // predicted - actual
	VariancePercentage float64         `json:"variance_percentage"` // 0 when actual == 0
	AccuracyPercentage float64         `json:"accuracy_percentage"` // clamped to [0, 100]
	Rating             Rating          `json:"rating"`
}
