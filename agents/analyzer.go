package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/rivalscan/rivalscan/flow"
	"github.com/rivalscan/rivalscan/provider"
)

const analyzerPrompt = `Analyze this business query and extract what is being compared:

Query: %q

Respond with ONLY a JSON object of this exact shape:
{"entities": ["ProductA", "ProductB"], "focus_areas": ["pricing", "features"]}

"entities" are the named products or services to compare. "focus_areas" are
the comparison dimensions the query asks about. Use empty arrays for anything
the query does not specify.`

// QueryAnalyzer extracts the compared entities and focus areas from the
// natural-language query.
//
// When the query names no entities or focus areas, the configured defaults
// apply, so a vague query still yields a runnable research plan. Entities
// supplied directly in the initial state are respected and not re-derived.
type QueryAnalyzer struct {
	llm               provider.Completer
	defaultEntities   []string
	defaultFocusAreas []string
}

// NewQueryAnalyzer creates the query analysis step.
func NewQueryAnalyzer(llm provider.Completer, defaultEntities, defaultFocusAreas []string) *QueryAnalyzer {
	return &QueryAnalyzer{
		llm:               llm,
		defaultEntities:   defaultEntities,
		defaultFocusAreas: defaultFocusAreas,
	}
}

// Name returns the step identifier.
func (a *QueryAnalyzer) Name() string { return StepAnalyzer }

// Requires lists the input fields.
func (a *QueryAnalyzer) Requires() []string { return []string{FieldQuery} }

// Produces lists the output fields.
func (a *QueryAnalyzer) Produces() []string {
	return []string{FieldEntities, FieldFocusAreas, FieldAgentLog}
}

type analyzerResponse struct {
	Entities   []string `json:"entities"`
	FocusAreas []string `json:"focus_areas"`
}

// Run analyzes the query.
func (a *QueryAnalyzer) Run(ctx context.Context, state *flow.State) (*flow.Result, error) {
	entities := state.GetStrings(FieldEntities)
	focusAreas := state.GetStrings(FieldFocusAreas)

	// Only call the LLM for what the caller did not supply explicitly.
	if len(entities) == 0 || len(focusAreas) == 0 {
		raw, err := a.llm.Complete(ctx, provider.Request{
			Prompt:      fmt.Sprintf(analyzerPrompt, state.GetString(FieldQuery)),
			Temperature: 0.1,
		})
		if err != nil {
			return nil, err
		}

		var parsed analyzerResponse
		if err := parseResponse(StepAnalyzer, raw, &parsed); err != nil {
			return nil, err
		}
		if len(entities) == 0 {
			entities = dedupe(parsed.Entities)
		}
		if len(focusAreas) == 0 {
			focusAreas = dedupe(parsed.FocusAreas)
		}
	}

	if len(entities) == 0 {
		entities = a.defaultEntities
	}
	if len(focusAreas) == 0 {
		focusAreas = a.defaultFocusAreas
	}

	return flow.NewResult(map[string]any{
		FieldEntities:   entities,
		FieldFocusAreas: focusAreas,
		FieldAgentLog: appendLog(state, fmt.Sprintf(
			"query_analyzer: identified %d entities and %d focus areas", len(entities), len(focusAreas))),
	}), nil
}

// dedupe removes duplicates and blanks, preserving first-seen order.
func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	var out []string
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key := strings.ToLower(item)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}
