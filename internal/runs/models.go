package runs

import "time"

// Kind distinguishes the two sampling run shapes.
type Kind string

const (
	KindRunPlate Kind = "runplate"
	KindMove     Kind = "move"
)

// Status represents the lifecycle of a run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusStopped   Status = "stopped"
)

var statusSet = map[Status]struct{}{
	StatusPending:   {},
	StatusRunning:   {},
	StatusCompleted: {},
	StatusFailed:    {},
	StatusStopped:   {},
}

// IsTerminal reports whether the status ends a run's lifecycle.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusStopped:
		return true
	}
	return false
}

// Run is one recorded sampling run.
type Run struct {
	ID              string
	Kind            Kind
	Wells           string // comma-separated well labels in visit order
	SamplingSeconds int
	BufferSeconds   int
	Status          Status
	ErrorMessage    string
	CreatedAt       time.Time
	StartedAt       time.Time
	FinishedAt      time.Time
}

// HealthSummary aggregates run history for diagnostics.
type HealthSummary struct {
	Total     int
	Pending   int
	Running   int
	Completed int
	Failed    int
	Stopped   int
}
