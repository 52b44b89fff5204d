package storage

import "errors"

// Storage errors shared by all backends.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when inserting a record whose key already exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrVersionConflict is returned by Save when the stored version no longer
	// matches the version the caller read.
	ErrVersionConflict = errors.New("version conflict: record modified concurrently")

	// ErrUnavailable wraps connectivity failures. Batch operations abort on it.
	ErrUnavailable = errors.New("store unavailable")
)
