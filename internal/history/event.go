// Package history keeps an append-only log of rebuild check runs.
package history

import (
	"encoding/json"
	"time"
)

// Event types written during a run.
const (
	TypeJobStarted         = "JobStarted"
	TypePackagesSelected   = "PackagesSelected"
	TypeEnvironmentReady   = "EnvironmentReady"
	TypePackagesLinked     = "PackagesLinked"
	TypeJobCompleted       = "JobCompleted"
	TypeJobFailed          = "JobFailed"
	TypeEnvironmentRemoved = "EnvironmentRemoved"
)

// Event is one stored history record.
type Event struct {
	ID        int64             `json:"id"`
	JobID     string            `json:"job_id"`
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   json.RawMessage   `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}
