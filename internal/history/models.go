package history

import "time"

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is one recorded pipeline run.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     Status
	StartedBy  string
	Error      string
	Tables     []TableRecord
}

// Duration returns how long the run took, or zero while it is running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Rows returns the total rows written across all relations.
func (r Run) Rows() int {
	total := 0
	for _, t := range r.Tables {
		total += t.Rows
	}
	return total
}

// TableRecord describes one relation written by a run.
type TableRecord struct {
	Relation string
	Path     string
	Rows     int
	Bytes    int64
}
