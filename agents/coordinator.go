package agents

import (
	"context"
	"fmt"

	"github.com/rivalscan/rivalscan/flow"
)

// ResearchCoordinator turns the analyzed query into a research plan: one
// search query per entity and focus area. It is a pure transformation and
// never calls an external service.
type ResearchCoordinator struct{}

// NewResearchCoordinator creates the coordination step.
func NewResearchCoordinator() *ResearchCoordinator {
	return &ResearchCoordinator{}
}

// Name returns the step identifier.
func (c *ResearchCoordinator) Name() string { return StepCoordinator }

// Requires lists the input fields.
func (c *ResearchCoordinator) Requires() []string {
	return []string{FieldEntities, FieldFocusAreas}
}

// Produces lists the output fields.
func (c *ResearchCoordinator) Produces() []string {
	return []string{FieldPlan, FieldAgentLog}
}

// Run builds the plan.
func (c *ResearchCoordinator) Run(ctx context.Context, state *flow.State) (*flow.Result, error) {
	entities := state.GetStrings(FieldEntities)
	focusAreas := state.GetStrings(FieldFocusAreas)

	plan := &Plan{
		Entities:   entities,
		FocusAreas: focusAreas,
		Queries:    make(map[string]map[string]string, len(entities)),
	}
	for _, entity := range entities {
		plan.Queries[entity] = make(map[string]string, len(focusAreas))
		for _, area := range focusAreas {
			plan.Queries[entity][area] = SearchQuery(entity, area)
		}
	}

	return flow.NewResult(map[string]any{
		FieldPlan: plan,
		FieldAgentLog: appendLog(state, fmt.Sprintf(
			"research_coordinator: planned %d queries across %d entities",
			len(entities)*len(focusAreas), len(entities))),
	}), nil
}

// SearchQuery builds the web query for one entity and focus area.
func SearchQuery(entity, area string) string {
	return fmt.Sprintf("%s software %s comparison review", entity, area)
}
