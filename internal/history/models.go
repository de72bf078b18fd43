package history

import "time"

// Status is the lifecycle state of a recorded run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusVetoed    Status = "vetoed"
	StatusCancelled Status = "cancelled"
)

// Run is one release run.
type Run struct {
	ID         string
	Project    string
	Mode       string
	Repository string
	Status     Status
	StartedAt  time.Time
	FinishedAt *time.Time

	// ArtifactCount and ErrorCount are filled by List.
	ArtifactCount int
	ErrorCount    int

	// Artifacts and Errors are filled by Get.
	Artifacts []Artifact
	Errors    []ErrorEntry
}

// Duration is the run's wall time, or zero while it is still running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Artifact is one released artifact.
type Artifact struct {
	Name       string
	Version    string
	Digest     string
	Size       int64
	Path       string
	ReleasedAt time.Time
}

// ErrorEntry is one error recorded by a run.
type ErrorEntry struct {
	Phase   string
	Module  string
	Version string
	Message string
}
