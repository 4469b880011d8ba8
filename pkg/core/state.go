package core

import "time"

// Store defines the interface for run history operations.
type Store interface {
	Open(path string) error
	Close() error
	InitSchema() error

	CreateRun(env string, in RunInputs) (*Run, error)
	CompleteRun(id string, status RunStatus, out RunOutputs, errMsg string) error
	GetRun(id string) (*Run, error)
	GetLatestRun(env string) (*Run, error)
	ListRuns(limit int) ([]*Run, error)
}

// RunStatus represents the status of a transformation run.
type RunStatus string

// Run status constants.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunInputs identifies the datasets a run reads.
type RunInputs struct {
	TrainPath string
	TestPath  string
}

// RunOutputs summarizes what a run produced.
type RunOutputs struct {
	ArtifactPath     string
	ArtifactChecksum string
	TrainRows        int
	TestRows         int
	FeatureCount     int
}

// Run represents one transformation run.
type Run struct {
	ID          string
	Environment string
	Status      RunStatus
	RunInputs
	RunOutputs
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// Duration returns how long the run took, or zero while it is running.
func (r *Run) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}
