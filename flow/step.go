package flow

import "context"

// Step is one unit of orchestrated work: an external call (LLM completion,
// web search) or a pure transformation, with a declared input/output
// contract.
//
// Steps must be idempotent with respect to re-invocation given the same
// input state: the engine may re-run a step on a loop-back edge. A step may
// only mutate the fields it declares in Produces; the engine rejects patches
// that touch anything else.
type Step interface {
	// Name returns the unique step identifier used by the Router.
	Name() string

	// Requires lists state fields that must be present before Run is called.
	// The engine fails the run with a MissingInputError if any are absent.
	Requires() []string

	// Produces lists the state fields this step is allowed to write.
	Produces() []string

	// Run executes the step against the current state and returns a Result
	// whose patch the engine merges. Errors are classified by type:
	// *ProviderError is retryable, everything else is fatal for the run.
	Run(ctx context.Context, state *State) (*Result, error)
}

// Result is the outcome of one step execution. It is owned exclusively by
// the engine during the step's execution window and never shared across
// steps.
type Result struct {
	// Patch holds the state update. Keys must be a subset of the step's
	// declared Produces set.
	Patch map[string]any

	// Hint is an optional routing hint (e.g. "request re-research") recorded
	// in logs. Routing itself is decided by the Router's predicates, not by
	// the hint.
	Hint string
}

// NewResult creates a Result with the given patch.
func NewResult(patch map[string]any) *Result {
	if patch == nil {
		patch = make(map[string]any)
	}
	return &Result{Patch: patch}
}

// WithHint attaches a routing hint and returns the result for chaining.
func (r *Result) WithHint(hint string) *Result {
	r.Hint = hint
	return r
}
