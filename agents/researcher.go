package agents

import (
	"context"
	"fmt"

	"github.com/rivalscan/rivalscan/flow"
	"github.com/rivalscan/rivalscan/provider"
)

// WebResearcher executes the research plan against the search provider.
//
// On first entry it runs the full plan. When the validator has flagged
// research gaps, a re-entry runs only the narrowed gap queries and replaces
// just those entity/focus-area buckets, leaving every other bucket from the
// first pass untouched.
type WebResearcher struct {
	search provider.Searcher
	limit  int
}

// NewWebResearcher creates the research step. limit bounds hits per query.
func NewWebResearcher(search provider.Searcher, limit int) *WebResearcher {
	if limit <= 0 {
		limit = 5
	}
	return &WebResearcher{search: search, limit: limit}
}

// Name returns the step identifier.
func (r *WebResearcher) Name() string { return StepResearcher }

// Requires lists the input fields.
func (r *WebResearcher) Requires() []string { return []string{FieldPlan} }

// Produces lists the output fields.
func (r *WebResearcher) Produces() []string {
	return []string{FieldSearchResults, FieldAgentLog}
}

// Run gathers search results.
func (r *WebResearcher) Run(ctx context.Context, state *flow.State) (*flow.Result, error) {
	plan, ok := statePlan(state)
	if !ok {
		return nil, flow.NewParseError(StepResearcher, "research_plan is not a *Plan", nil)
	}

	results := copyResults(stateResults(state))
	gaps := stateGaps(state)

	var queried int
	if len(gaps) > 0 && len(results) > 0 {
		// Narrowed re-research pass.
		for _, gap := range gaps {
			hits, err := r.search.Search(ctx, gap.Query, r.limit)
			if err != nil {
				return nil, err
			}
			bucket(results, gap.Entity)[gap.FocusArea] = hits
			queried++
		}
	} else {
		for _, entity := range plan.Entities {
			for _, area := range plan.FocusAreas {
				hits, err := r.search.Search(ctx, plan.Queries[entity][area], r.limit)
				if err != nil {
					return nil, err
				}
				bucket(results, entity)[area] = hits
				queried++
			}
		}
	}

	return flow.NewResult(map[string]any{
		FieldSearchResults: results,
		FieldAgentLog: appendLog(state, fmt.Sprintf(
			"web_researcher: ran %d searches covering %d entities", queried, len(results))),
	}), nil
}

func statePlan(state *flow.State) (*Plan, bool) {
	v, _ := state.Get(FieldPlan)
	plan, ok := v.(*Plan)
	return plan, ok
}

func stateResults(state *flow.State) SearchResults {
	v, _ := state.Get(FieldSearchResults)
	results, _ := v.(SearchResults)
	return results
}

func stateGaps(state *flow.State) []Gap {
	v, _ := state.Get(FieldGaps)
	gaps, _ := v.([]Gap)
	return gaps
}

func bucket(results SearchResults, entity string) map[string][]provider.SearchHit {
	if results[entity] == nil {
		results[entity] = make(map[string][]provider.SearchHit)
	}
	return results[entity]
}

// copyResults clones the two map levels so a re-research pass never mutates
// the snapshot an earlier tick checkpointed.
func copyResults(in SearchResults) SearchResults {
	out := make(SearchResults, len(in))
	for entity, areas := range in {
		out[entity] = make(map[string][]provider.SearchHit, len(areas))
		for area, hits := range areas {
			out[entity][area] = hits
		}
	}
	return out
}
