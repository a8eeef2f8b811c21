package flow

import (
	"errors"
	"fmt"
)

// MissingInputError reports that a step's required state fields were absent
// when the engine tried to run it. This is a configuration or wiring error,
// never retried.
type MissingInputError struct {
	Step   string
	Fields []string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("step '%s' missing required input fields: %v", e.Step, e.Fields)
}

// NewMissingInputError creates a new missing input error.
func NewMissingInputError(step string, fields []string) *MissingInputError {
	return &MissingInputError{Step: step, Fields: fields}
}

// ProviderError reports a failure from an external service (LLM completion or
// web search). Provider errors are transient from the engine's point of view
// and are retried up to the configured per-step cap.
type ProviderError struct {
	Provider string
	Message  string
	Cause    error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider '%s' error: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("provider '%s' error: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a new provider error.
func NewProviderError(provider, message string, cause error) *ProviderError {
	return &ProviderError{Provider: provider, Message: message, Cause: cause}
}

// ParseError reports that a step's external-call output could not be mapped
// onto its declared output fields. Structural, fatal immediately: retrying an
// unparseable response without changing the request rarely helps.
type ParseError struct {
	Step    string
	Snippet string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("step '%s' produced unparseable output: %v (got: %q)", e.Step, e.Cause, e.Snippet)
	}
	return fmt.Sprintf("step '%s' produced unparseable output (got: %q)", e.Step, e.Snippet)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// NewParseError creates a new parse error. The snippet is truncated so that
// abort diagnostics stay readable.
func NewParseError(step, snippet string, cause error) *ParseError {
	const maxSnippet = 160
	if len(snippet) > maxSnippet {
		snippet = snippet[:maxSnippet] + "..."
	}
	return &ParseError{Step: step, Snippet: snippet, Cause: cause}
}

// BudgetExhaustedError reports that a run hit the global iteration cap. It is
// surfaced with its own type so operators can tell runaway loop-backs apart
// from genuine external failures.
type BudgetExhaustedError struct {
	Ticks int
	Cap   int
}

func (e *BudgetExhaustedError) Error() string {
	return fmt.Sprintf("iteration budget exhausted: %d ticks executed, cap is %d", e.Ticks, e.Cap)
}

// NewBudgetExhaustedError creates a new budget exhausted error.
func NewBudgetExhaustedError(ticks, cap int) *BudgetExhaustedError {
	return &BudgetExhaustedError{Ticks: ticks, Cap: cap}
}

// IsRetryable reports whether the engine may re-invoke a step after this
// error. Only provider failures qualify.
func IsRetryable(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

// ErrorKind returns a short classification label used in run diagnostics and
// structured logs.
func ErrorKind(err error) string {
	var (
		mi *MissingInputError
		pe *ProviderError
		pa *ParseError
		be *BudgetExhaustedError
	)
	switch {
	case errors.As(err, &mi):
		return "missing_input"
	case errors.As(err, &pe):
		return "provider"
	case errors.As(err, &pa):
		return "parse"
	case errors.As(err, &be):
		return "budget_exhausted"
	case err == nil:
		return ""
	default:
		return "internal"
	}
}
