package cmdmetrics

import (
	"context"
	"time"
)

// Command completion statuses attached to every observation.
const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// CommandEvent describes a completed command as reported by an event source.
// RequestID is the transient identifier that links the completion back to its
// start event; it is only unique among commands currently in flight.
type CommandEvent struct {
	RequestID int64
	Name      string
	Elapsed   time.Duration
}

// Observation is one timed command, fully resolved, ready for emission.
type Observation struct {
	Metric      string
	Description string
	Command     string
	Collection  string
	Status      string
	Elapsed     time.Duration
}

// Recorder is the emission pipeline that turns observations into measurements.
// Implementations must be safe for concurrent use and must not block; the
// listener calls Record on the event source's threads.
type Recorder interface {
	Record(ctx context.Context, obs Observation)
}
