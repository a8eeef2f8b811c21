// Package flow implements a stateful multi-step orchestrator with conditional
// routing and bounded retry loops.
//
// A flow is a set of Steps wired together by a Router. The Engine drives one
// Run at a time: it executes the current step, merges the step's patch into
// the shared State, asks the Router for the next step, and repeats until a
// terminal state is reached. Loop-back edges are first-class; termination is
// guaranteed by a global iteration cap.
//
// Design principles:
//   - Routing is deterministic: predicates read typed state fields only
//   - Every state mutation goes through a logged merge
//   - One Run owns its State exclusively; concurrent Runs never share state
package flow

import "sort"

// State is the shared record threaded through every step of a Run.
//
// Fields accumulate additively as steps execute. A step overwriting a field
// written by an earlier step is legal only through Merge, which reports the
// overwritten keys so the engine can log the transition. State is not safe
// for concurrent use; it is owned by the goroutine driving the Run.
type State struct {
	fields map[string]any
}

// NewState creates a State pre-populated with the given initial fields.
func NewState(initial map[string]any) *State {
	s := &State{fields: make(map[string]any, len(initial))}
	for k, v := range initial {
		s.fields[k] = v
	}
	return s
}

// Get returns the value for a field and whether it is present.
func (s *State) Get(field string) (any, bool) {
	v, ok := s.fields[field]
	return v, ok
}

// GetString returns the field as a string, or "" if absent or not a string.
func (s *State) GetString(field string) string {
	v, _ := s.fields[field].(string)
	return v
}

// GetStrings returns the field as a string slice. Both []string and []any
// (as produced by JSON round-trips) are accepted.
func (s *State) GetStrings(field string) []string {
	switch v := s.fields[field].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}

// GetFloat returns the field as a float64 and whether the conversion held.
func (s *State) GetFloat(field string) (float64, bool) {
	switch v := s.fields[field].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// GetBool returns the field as a bool, or false if absent or not a bool.
func (s *State) GetBool(field string) bool {
	v, _ := s.fields[field].(bool)
	return v
}

// Set writes a single field.
func (s *State) Set(field string, value any) {
	s.fields[field] = value
}

// Has reports whether every named field is present.
func (s *State) Has(fields ...string) bool {
	for _, f := range fields {
		if _, ok := s.fields[f]; !ok {
			return false
		}
	}
	return true
}

// Missing returns the subset of fields not present, in input order.
func (s *State) Missing(fields ...string) []string {
	return s.missing(fields)
}

func (s *State) missing(fields []string) []string {
	var absent []string
	for _, f := range fields {
		if _, ok := s.fields[f]; !ok {
			absent = append(absent, f)
		}
	}
	return absent
}

// Merge applies a patch last-writer-wins per field, leaving unrelated fields
// untouched. It returns the sorted list of fields that already existed and
// were overwritten, so the caller can log the override as a transition.
func (s *State) Merge(patch map[string]any) []string {
	var overwritten []string
	for k, v := range patch {
		if _, exists := s.fields[k]; exists {
			overwritten = append(overwritten, k)
		}
		s.fields[k] = v
	}
	sort.Strings(overwritten)
	return overwritten
}

// Snapshot returns a copy of the field map. Top-level keys are copied;
// nested values are shared, so treat snapshots as read-only.
func (s *State) Snapshot() map[string]any {
	out := make(map[string]any, len(s.fields))
	for k, v := range s.fields {
		out[k] = v
	}
	return out
}

// Len returns the number of fields currently set.
func (s *State) Len() int {
	return len(s.fields)
}
