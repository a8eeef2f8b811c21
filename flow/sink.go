package flow

import "context"

// ArtifactKind classifies what a sink produced.
type ArtifactKind string

const (
	ArtifactData    ArtifactKind = "data"
	ArtifactSummary ArtifactKind = "summary"
	ArtifactReport  ArtifactKind = "report"
)

// Artifact describes one output the sink produced from a completed run: a
// logical kind plus a stable identifier used for downstream listing, and
// where the artifact landed.
type Artifact struct {
	Kind     ArtifactKind `json:"kind"`
	ID       string       `json:"id"`
	Location string       `json:"location"`
}

// Sink consumes the final state of a completed run and hands it to external
// formatting and output collaborators.
//
// A sink error is a user-visible warning, not an orchestration failure: the
// engine logs it and keeps the run's Completed outcome, returning whatever
// artifacts did get produced.
type Sink interface {
	Render(ctx context.Context, runID string, state *State) ([]Artifact, error)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, runID string, state *State) ([]Artifact, error)

// Render calls the wrapped function.
func (f SinkFunc) Render(ctx context.Context, runID string, state *State) ([]Artifact, error) {
	return f(ctx, runID, state)
}
