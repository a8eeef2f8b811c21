package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/rivalscan/rivalscan/flow"
	"github.com/rivalscan/rivalscan/provider"
)

const analystPrompt = `You are structuring research data about %s.

Raw search results:
%s

Extract findings for each of these focus areas: %s.

Respond with ONLY a JSON object mapping each focus area to a short findings
paragraph, for example:
{"pricing": "Starts at $15/user/month ...", "support": "24/7 chat on all plans ..."}

Use an empty string for a focus area the results say nothing about.`

// DataAnalyst structures raw search results into per-entity findings using
// the LLM, one call per entity. Malformed responses are a parse failure for
// the whole step.
type DataAnalyst struct {
	llm provider.Completer
}

// NewDataAnalyst creates the analysis step.
func NewDataAnalyst(llm provider.Completer) *DataAnalyst {
	return &DataAnalyst{llm: llm}
}

// Name returns the step identifier.
func (a *DataAnalyst) Name() string { return StepAnalyst }

// Requires lists the input fields.
func (a *DataAnalyst) Requires() []string {
	return []string{FieldSearchResults, FieldEntities, FieldFocusAreas}
}

// Produces lists the output fields.
func (a *DataAnalyst) Produces() []string {
	return []string{FieldFindings, FieldAgentLog}
}

// Run structures the gathered data.
func (a *DataAnalyst) Run(ctx context.Context, state *flow.State) (*flow.Result, error) {
	results := stateResults(state)
	entities := state.GetStrings(FieldEntities)
	focusAreas := state.GetStrings(FieldFocusAreas)

	findings := make(Findings, len(entities))
	for _, entity := range entities {
		raw, err := a.llm.Complete(ctx, provider.Request{
			Prompt: fmt.Sprintf(analystPrompt,
				entity, flattenHits(results[entity]), strings.Join(focusAreas, ", ")),
			Temperature: 0.1,
		})
		if err != nil {
			return nil, err
		}

		var structured map[string]string
		if err := parseResponse(StepAnalyst, raw, &structured); err != nil {
			return nil, err
		}

		entry := make(map[string]string, len(focusAreas))
		for _, area := range focusAreas {
			entry[area] = strings.TrimSpace(structured[area])
		}
		findings[entity] = entry
	}

	return flow.NewResult(map[string]any{
		FieldFindings: findings,
		FieldAgentLog: appendLog(state, fmt.Sprintf(
			"data_analyst: structured findings for %d entities", len(findings))),
	}), nil
}

// flattenHits renders one entity's search hits as prompt context.
func flattenHits(areas map[string][]provider.SearchHit) string {
	if len(areas) == 0 {
		return "(no results gathered)"
	}
	var b strings.Builder
	for area, hits := range areas {
		fmt.Fprintf(&b, "## %s\n", area)
		for _, hit := range hits {
			fmt.Fprintf(&b, "- %s: %s (%s)\n", hit.Title, hit.Snippet, hit.URL)
		}
	}
	return b.String()
}
