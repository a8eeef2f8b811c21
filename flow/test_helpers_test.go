package flow

import (
	"context"
	"sync/atomic"
)

// mockStep is a configurable step for engine and router tests.
type mockStep struct {
	name     string
	requires []string
	produces []string
	patch    map[string]any
	hint     string
	err      error
	calls    atomic.Int64
}

func (m *mockStep) Name() string       { return m.name }
func (m *mockStep) Requires() []string { return m.requires }
func (m *mockStep) Produces() []string { return m.produces }

func (m *mockStep) Run(ctx context.Context, state *State) (*Result, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return NewResult(m.patch), nil
}

func (m *mockStep) callCount() int64 {
	return m.calls.Load()
}

// flakyStep fails with the given error until failures attempts have been
// consumed, then succeeds.
type flakyStep struct {
	mockStep
	failures int
}

func (f *flakyStep) Run(ctx context.Context, state *State) (*Result, error) {
	n := f.calls.Add(1)
	if n <= int64(f.failures) {
		return nil, f.err
	}
	return NewResult(f.patch), nil
}

// funcStep adapts a function into a Step for one-off behaviors.
type funcStep struct {
	name     string
	requires []string
	produces []string
	fn       func(ctx context.Context, state *State) (*Result, error)
}

func (f *funcStep) Name() string       { return f.name }
func (f *funcStep) Requires() []string { return f.requires }
func (f *funcStep) Produces() []string { return f.produces }
func (f *funcStep) Run(ctx context.Context, state *State) (*Result, error) {
	return f.fn(ctx, state)
}

// recordingSink captures what the engine hands to the sink.
type recordingSink struct {
	runID string
	state map[string]any
	err   error
	calls int
}

func (r *recordingSink) Render(ctx context.Context, runID string, state *State) ([]Artifact, error) {
	r.calls++
	r.runID = runID
	r.state = state.Snapshot()
	if r.err != nil {
		return nil, r.err
	}
	return []Artifact{{Kind: ArtifactReport, ID: "report_" + runID, Location: "memory"}}, nil
}

// recordingCheckpointer captures saved snapshots.
type recordingCheckpointer struct {
	snaps []Snapshot
	err   error
}

func (r *recordingCheckpointer) Save(ctx context.Context, snap Snapshot) error {
	if r.err != nil {
		return r.err
	}
	r.snaps = append(r.snaps, snap)
	return nil
}
