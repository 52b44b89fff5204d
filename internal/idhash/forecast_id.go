// Package idhash derives deterministic identifiers.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// ComputeForecastID computes a forecast id for imported documents that carry none.
// Formula: SHA256(company|account|forecast_type|start_date)
// start is formatted as YYYY-MM-DD, or empty when nil.
// Returns hex-encoded hash (64 characters).
func ComputeForecastID(company, account, forecastType string, start *time.Time) string {
	startStr := ""
	if start != nil {
		startStr = start.UTC().Format(time.DateOnly)
	}

	data := fmt.Sprintf("%s|%s|%s|%s",
		strings.TrimSpace(company),
		strings.TrimSpace(account),
		forecastType,
		startStr,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
