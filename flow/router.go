package flow

import "fmt"

// Reserved terminal identifiers. A Route whose To is one of these ends the
// run instead of selecting another step.
const (
	// Completed is the success terminal: the engine hands the final state to
	// the sink and finishes the run.
	Completed = "__completed__"

	// Aborted is the failure terminal.
	Aborted = "__aborted__"
)

// Predicate guards a route. Predicates must be pure reads over typed state
// fields so that routing stays deterministic and unit-testable.
type Predicate func(*State) bool

// Always is the unconditional predicate.
func Always(*State) bool { return true }

// Route is a directed edge from one step to the next, guarded by a
// predicate. Routes are static configuration, immutable at runtime.
type Route struct {
	From string
	To   string
	When Predicate
}

// Router selects the next step after each successful step by evaluating the
// declared routes for the current step in order. The first route whose
// predicate matches wins.
//
// The router is total: if no declared route matches, Next falls back to the
// per-source default, and failing that to the Aborted terminal, so a run can
// never deadlock on an unmatched state.
type Router struct {
	routes   map[string][]Route
	defaults map[string]string
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{
		routes:   make(map[string][]Route),
		defaults: make(map[string]string),
	}
}

// Add declares a guarded edge. Routes from the same step are evaluated in
// the order they were added.
func (r *Router) Add(from, to string, when Predicate) *Router {
	if when == nil {
		when = Always
	}
	r.routes[from] = append(r.routes[from], Route{From: from, To: to, When: when})
	return r
}

// Default declares the fallback edge taken when no guarded route from the
// step matches.
func (r *Router) Default(from, to string) *Router {
	r.defaults[from] = to
	return r
}

// Next returns the identifier of the next step (or a terminal) for the
// current state. The returned Route describes the edge taken; for the
// implicit abort fallback it has an empty From.
func (r *Router) Next(from string, state *State) (string, Route) {
	for _, route := range r.routes[from] {
		if route.When(state) {
			return route.To, route
		}
	}
	if to, ok := r.defaults[from]; ok {
		route := Route{From: from, To: to, When: Always}
		return to, route
	}
	// Totality fallback: an unrouted state aborts rather than deadlocks.
	return Aborted, Route{To: Aborted, When: Always}
}

// Validate checks that every non-terminal edge target is a known step name.
// Call it once at assembly time, before any run starts.
func (r *Router) Validate(steps map[string]Step) error {
	check := func(from, to string) error {
		if to == Completed || to == Aborted {
			return nil
		}
		if _, ok := steps[to]; !ok {
			return fmt.Errorf("route from '%s' targets unknown step '%s'", from, to)
		}
		return nil
	}
	for from, routes := range r.routes {
		if _, ok := steps[from]; !ok {
			return fmt.Errorf("routes declared for unknown step '%s'", from)
		}
		for _, route := range routes {
			if err := check(from, route.To); err != nil {
				return err
			}
		}
	}
	for from, to := range r.defaults {
		if err := check(from, to); err != nil {
			return err
		}
	}
	return nil
}
