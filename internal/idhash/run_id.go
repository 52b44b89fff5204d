package idhash

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/mr-tron/base58"
)

// ComputeRunID computes a compact, deterministic validation run id.
// Formula: base58(SHA256(scope|started_at_unix_nano))
func ComputeRunID(scope string, startedAt time.Time) string {
	data := fmt.Sprintf("%s|%d", scope, startedAt.UnixNano())
	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}
