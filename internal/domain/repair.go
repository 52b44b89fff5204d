package domain

// RepairStatus is the outcome of a repair attempt on one record.
type RepairStatus string

const (
	RepairStatusFixed     RepairStatus = "fixed"
	RepairStatusNotNeeded RepairStatus = "not_needed"
	RepairStatusSkipped   RepairStatus = "skipped"
)

// RepairResult describes what the repair engine did with one record.
type RepairResult struct {
	ForecastID string           `json:"forecast_id"`
	Status     RepairStatus     `json:"status"`
	Reason     string           `json:"reason,omitempty"`
	Before     *BoundsSnapshot  `json:"before,omitempty"`
	After      *BoundsSnapshot  `json:"after,omitempty"`
	Validation ValidationResult `json:"validation"`
}

// Repair error kinds.
const (
	RepairErrNotFound   = "record_not_found"
	RepairErrConflict   = "version_conflict"
	RepairErrStoreWrite = "store_write_failure"
)

// RepairError is one per-record failure in a batch.
type RepairError struct {
	ForecastID string `json:"forecast_id"`
	Kind       string `json:"kind"`
	Message    string `json:"message"`
}

// BatchRepairResult aggregates a batch repair run.
type BatchRepairResult struct {
	Total          int            `json:"total"`
	Fixed          int            `json:"fixed"`
	Skipped        int            `json:"skipped"`
	Errors         int            `json:"errors"`
	FixedDetails   []RepairResult `json:"fixed_details"`
	SkippedDetails []RepairResult `json:"skipped_details,omitempty"`
	ErrorDetails   []RepairError  `json:"error_details"`
	// Aborted is set when a connectivity failure stopped the batch early.
	Aborted bool `json:"aborted"`
}
