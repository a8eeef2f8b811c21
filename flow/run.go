package flow

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Outcome is the terminal result of a Run.
type Outcome string

const (
	// OutcomeCompleted means the run reached the success terminal and the
	// sink received the final state.
	OutcomeCompleted Outcome = "completed"

	// OutcomeAborted means the run hit a fatal failure, exhausted its
	// iteration budget, or was cancelled.
	OutcomeAborted Outcome = "aborted"
)

// Run is one end-to-end execution of a flow, from initial query to terminal
// state. It carries the identity used for logging and output naming plus the
// diagnostics the engine accumulates while driving it.
type Run struct {
	// ID identifies the run in logs, checkpoints, and artifact names.
	ID string

	// StartedAt is when the engine began the first tick.
	StartedAt time.Time

	// FinishedAt is when the run reached a terminal state.
	FinishedAt time.Time

	// Ticks counts step executions, including retries of the same step via
	// loop-back edges but not in-step transient retries.
	Ticks int

	// Outcome is the terminal outcome.
	Outcome Outcome

	// Hops records the step identifiers in execution order.
	Hops []string

	// Retries maps step name to the number of transient retries consumed.
	Retries map[string]int

	// FailedStep, ErrKind, and Err describe the failure for aborted runs.
	FailedStep string
	ErrKind    string
	Err        error

	// FinalState preserves the last-known state snapshot so an aborted run
	// is still inspectable.
	FinalState map[string]any

	// Artifacts lists what the sink produced for completed runs.
	Artifacts []Artifact

	cancelled atomic.Bool
}

// NewRun creates a run with a fresh uuid identity.
func NewRun() *Run {
	return &Run{
		ID:      uuid.NewString(),
		Retries: make(map[string]int),
	}
}

// Cancel requests cancellation. The engine observes the flag at tick
// boundaries only: an in-flight external call is never interrupted, the run
// transitions to Aborted before the next step starts.
func (r *Run) Cancel() {
	r.cancelled.Store(true)
}

// Cancelled reports whether cancellation was requested.
func (r *Run) Cancelled() bool {
	return r.cancelled.Load()
}

// Duration returns how long the run took, or time since start if still
// running.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
