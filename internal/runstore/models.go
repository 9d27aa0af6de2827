package runstore

import (
	"errors"
	"time"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("run not found")

// Run is one recorded pipeline execution.
type Run struct {
	ID             string
	Prompt         string
	Status         Status
	Stage          string
	ErrorKind      string
	ErrorMessage   string
	RenderAttempts int
	Strategy       string
	VideoSeconds   float64
	AudioSeconds   float64
	ArtifactPath   string
	ArchiveURL     string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	FinishedAt     time.Time
}

// Outcome carries the results recorded when a run succeeds.
type Outcome struct {
	RenderAttempts int
	Strategy       string
	VideoSeconds   float64
	AudioSeconds   float64
	ArtifactPath   string
	ArchiveURL     string
}

// Duration reports how long the run took, or has taken so far.
func (r Run) Duration(now time.Time) time.Duration {
	if r.CreatedAt.IsZero() {
		return 0
	}
	end := r.FinishedAt
	if end.IsZero() {
		end = now
	}
	return end.Sub(r.CreatedAt)
}
