package flow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RetryConfig governs per-step retries of transient failures.
type RetryConfig struct {
	// MaxRetries is the number of re-invocations after the initial attempt.
	// A step that fails transiently MaxRetries+1 times escalates to fatal.
	// Default: 2
	MaxRetries int

	// InitialBackoff is the wait before the first retry. Default: 100ms
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential backoff. Default: 10s
	MaxBackoff time.Duration

	// BackoffMultiplier is the exponential growth factor. Default: 2.0
	BackoffMultiplier float64
}

// DefaultRetryConfig returns a retry config with sensible defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        2,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// Snapshot captures run state after one tick, for checkpoint storage.
type Snapshot struct {
	RunID     string         `json:"run_id"`
	Step      string         `json:"step"`
	Tick      int            `json:"tick"`
	State     map[string]any `json:"state"`
	Timestamp time.Time      `json:"timestamp"`
}

// Checkpointer persists run snapshots. Checkpoint failures are logged, never
// fatal: losing a checkpoint must not abort a run that is otherwise healthy.
type Checkpointer interface {
	Save(ctx context.Context, snap Snapshot) error
}

// StepHook observes step execution for metrics and monitoring.
type StepHook func(run *Run, step Step, err error, elapsed time.Duration)

// Engine drives the Step→Router loop for one Run at a time until a terminal
// state, enforcing the global iteration cap and the per-step retry cap.
//
// The engine is strictly sequential: no two steps of the same run ever
// execute concurrently, because each step mutates shared state. Separate
// runs may execute concurrently on separate Engine calls since every run
// gets its own State instance.
type Engine struct {
	steps        map[string]Step
	router       *Router
	entry        string
	sink         Sink
	maxTicks     int
	retry        RetryConfig
	stepTimeout  time.Duration
	checkpointer Checkpointer
	afterStep    StepHook
	logger       *slog.Logger
	tracer       trace.Tracer
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a structured logger. The default discards records.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// WithMaxTicks sets the global iteration cap per run. Default: 24
func WithMaxTicks(n int) EngineOption {
	return func(e *Engine) { e.maxTicks = n }
}

// WithRetry sets the transient-failure retry policy.
func WithRetry(cfg RetryConfig) EngineOption {
	return func(e *Engine) { e.retry = cfg }
}

// WithStepTimeout bounds how long one external call may block before being
// treated as a transient failure. Default: 60s
func WithStepTimeout(d time.Duration) EngineOption {
	return func(e *Engine) { e.stepTimeout = d }
}

// WithCheckpointer enables per-tick state snapshots.
func WithCheckpointer(cp Checkpointer) EngineOption {
	return func(e *Engine) { e.checkpointer = cp }
}

// WithSink sets the result sink invoked on the success terminal.
func WithSink(sink Sink) EngineOption {
	return func(e *Engine) { e.sink = sink }
}

// WithAfterStep registers a hook called after every step execution.
func WithAfterStep(hook StepHook) EngineOption {
	return func(e *Engine) { e.afterStep = hook }
}

// WithTracer sets the OpenTelemetry tracer used for per-step spans.
func WithTracer(tracer trace.Tracer) EngineOption {
	return func(e *Engine) { e.tracer = tracer }
}

// NewEngine creates an engine over the given steps and routes.
//
// The entry step must exist and every route target must be a declared step
// or a terminal; construction fails otherwise so miswired graphs surface
// before the first run.
func NewEngine(steps []Step, router *Router, entry string, opts ...EngineOption) (*Engine, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("engine requires at least one step")
	}
	if router == nil {
		return nil, fmt.Errorf("engine requires a router")
	}

	byName := make(map[string]Step, len(steps))
	for _, step := range steps {
		if step.Name() == "" {
			return nil, fmt.Errorf("step with empty name")
		}
		if _, dup := byName[step.Name()]; dup {
			return nil, fmt.Errorf("duplicate step name '%s'", step.Name())
		}
		byName[step.Name()] = step
	}
	if _, ok := byName[entry]; !ok {
		return nil, fmt.Errorf("entry step '%s' not declared", entry)
	}
	if err := router.Validate(byName); err != nil {
		return nil, err
	}

	e := &Engine{
		steps:       byName,
		router:      router,
		entry:       entry,
		maxTicks:    24,
		retry:       DefaultRetryConfig(),
		stepTimeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer("rivalscan/flow")
	}
	return e, nil
}

// Execute runs the flow to a terminal state starting from the entry step.
// The returned Run always carries the terminal outcome and the last-known
// state snapshot; err is non-nil only for aborted runs.
func (e *Engine) Execute(ctx context.Context, initial map[string]any) (*Run, error) {
	run := NewRun()
	err := e.ExecuteRun(ctx, run, initial)
	return run, err
}

// ExecuteRun drives a caller-created Run, which allows the caller to hold a
// cancellation handle while the run is in flight.
func (e *Engine) ExecuteRun(ctx context.Context, run *Run, initial map[string]any) error {
	state := NewState(initial)
	run.StartedAt = time.Now().UTC()
	logger := e.logger.With("run_id", run.ID)
	logger.Info("run started", "entry", e.entry, "max_ticks", e.maxTicks)

	current := e.entry
	for {
		// Iteration budget is checked before work so that a run never
		// exceeds the cap even when loop-back edges fire repeatedly.
		if run.Ticks >= e.maxTicks {
			return e.abort(run, state, logger, current, NewBudgetExhaustedError(run.Ticks, e.maxTicks))
		}

		// Cancellation is observed at tick boundaries only; an in-flight
		// external call is never interrupted forcibly.
		if run.Cancelled() {
			return e.abort(run, state, logger, current, fmt.Errorf("run cancelled: %w", context.Canceled))
		}
		if err := ctx.Err(); err != nil {
			return e.abort(run, state, logger, current, fmt.Errorf("run context done: %w", err))
		}

		step := e.steps[current]
		if missing := state.Missing(step.Requires()...); len(missing) > 0 {
			return e.abort(run, state, logger, current, NewMissingInputError(current, missing))
		}

		result, err := e.runStep(ctx, run, logger, step, state)
		run.Ticks++
		run.Hops = append(run.Hops, current)
		if err != nil {
			return e.abort(run, state, logger, current, err)
		}

		if undeclared := undeclaredFields(step, result.Patch); len(undeclared) > 0 {
			return e.abort(run, state, logger, current,
				fmt.Errorf("step '%s' wrote undeclared fields %v", current, undeclared))
		}

		overwritten := state.Merge(result.Patch)
		if len(overwritten) > 0 {
			logger.Info("state fields overridden", "step", current, "fields", overwritten)
		}

		if e.checkpointer != nil {
			snap := Snapshot{
				RunID:     run.ID,
				Step:      current,
				Tick:      run.Ticks,
				State:     state.Snapshot(),
				Timestamp: time.Now().UTC(),
			}
			if err := e.checkpointer.Save(ctx, snap); err != nil {
				logger.Warn("checkpoint save failed", "step", current, "error", err)
			}
		}

		next, _ := e.router.Next(current, state)
		logger.Info("transition", "from", current, "to", next, "tick", run.Ticks, "hint", result.Hint)

		switch next {
		case Completed:
			e.complete(ctx, run, state, logger)
			return nil
		case Aborted:
			return e.abort(run, state, logger, current,
				fmt.Errorf("no route matched after step '%s'", current))
		default:
			current = next
		}
	}
}

// runStep executes one step with the per-call timeout and the transient
// retry loop. Only provider errors are retried; everything else returns
// immediately.
func (e *Engine) runStep(ctx context.Context, run *Run, logger *slog.Logger, step Step, state *State) (*Result, error) {
	backoff := e.retry.InitialBackoff
	var lastErr error

	for attempt := 0; attempt <= e.retry.MaxRetries; attempt++ {
		result, err := e.invoke(ctx, run, step, state)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return nil, err
		}
		if attempt == e.retry.MaxRetries {
			break
		}

		run.Retries[step.Name()]++
		logger.Warn("transient failure, retrying",
			"step", step.Name(), "attempt", attempt+1, "max_retries", e.retry.MaxRetries, "error", err)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("retry wait interrupted: %w", ctx.Err())
		case <-time.After(backoff):
			backoff = time.Duration(float64(backoff) * e.retry.BackoffMultiplier)
			if backoff > e.retry.MaxBackoff {
				backoff = e.retry.MaxBackoff
			}
		}
	}

	return nil, fmt.Errorf("step '%s' exhausted %d retries: %w", step.Name(), e.retry.MaxRetries, lastErr)
}

// invoke runs a single step attempt inside its own span and timeout.
func (e *Engine) invoke(ctx context.Context, run *Run, step Step, state *State) (*Result, error) {
	callCtx := ctx
	var cancel context.CancelFunc
	if e.stepTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, e.stepTimeout)
		defer cancel()
	}

	callCtx, span := e.tracer.Start(callCtx, "flow.step",
		trace.WithAttributes(
			attribute.String("flow.run_id", run.ID),
			attribute.String("flow.step", step.Name()),
			attribute.Int("flow.tick", run.Ticks),
		))
	defer span.End()

	start := time.Now()
	result, err := step.Run(callCtx, state)
	elapsed := time.Since(start)

	// A blown per-call deadline is a transient provider condition, not a
	// structural failure, as long as the run itself is still live.
	if err != nil && callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil && !IsRetryable(err) {
		err = NewProviderError(step.Name(), "call exceeded step timeout", err)
	}

	if e.afterStep != nil {
		e.afterStep(run, step, err, elapsed)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, ErrorKind(err))
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	if result == nil {
		result = NewResult(nil)
	}
	return result, nil
}

// complete finalizes a successful run and hands the state to the sink.
// Sink failures are reported as warnings, never rolled back into Aborted.
func (e *Engine) complete(ctx context.Context, run *Run, state *State, logger *slog.Logger) {
	run.Outcome = OutcomeCompleted
	run.FinishedAt = time.Now().UTC()
	run.FinalState = state.Snapshot()

	if e.sink != nil {
		artifacts, err := e.sink.Render(ctx, run.ID, state)
		run.Artifacts = artifacts
		if err != nil {
			logger.Warn("result sink reported errors", "error", err, "artifacts", len(artifacts))
		}
	}
	logger.Info("run completed", "ticks", run.Ticks, "duration", run.Duration().String(),
		"artifacts", len(run.Artifacts))
}

// abort finalizes a failed run, preserving the last-known state for
// diagnostics.
func (e *Engine) abort(run *Run, state *State, logger *slog.Logger, step string, err error) error {
	run.Outcome = OutcomeAborted
	run.FinishedAt = time.Now().UTC()
	run.FinalState = state.Snapshot()
	run.FailedStep = step
	run.ErrKind = ErrorKind(err)
	run.Err = err

	logger.Error("run aborted",
		"step", step, "kind", run.ErrKind, "retries", run.Retries[step],
		"ticks", run.Ticks, "error", err)
	return err
}

func undeclaredFields(step Step, patch map[string]any) []string {
	allowed := make(map[string]struct{}, len(step.Produces()))
	for _, f := range step.Produces() {
		allowed[f] = struct{}{}
	}
	var bad []string
	for k := range patch {
		if _, ok := allowed[k]; !ok {
			bad = append(bad, k)
		}
	}
	return bad
}

// Steps returns the declared steps keyed by name, for introspection.
func (e *Engine) Steps() map[string]Step {
	out := make(map[string]Step, len(e.steps))
	for k, v := range e.steps {
		out[k] = v
	}
	return out
}
