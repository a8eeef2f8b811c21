// Package agents implements the seven research steps of the comparison
// pipeline: query analysis, research coordination, web research, data
// structuring, validation, quality control, and report generation.
//
// Each agent is a flow.Step wrapping a prompt plus an external call (LLM
// completion or web search) and a strict parse of the response into typed
// state fields. Routing never reads free-form LLM text: every signal a route
// depends on (validation verdict, confidence score, research gaps) is
// normalized into a typed field first.
package agents

import (
	"encoding/json"
	"strings"

	"github.com/rivalscan/rivalscan/flow"
	"github.com/rivalscan/rivalscan/provider"
)

// State field names. These are a stable contract: the result sink and any
// downstream consumer of a finished run depend on them.
const (
	// FieldQuery is the original natural-language query.
	FieldQuery = "query"

	// FieldEntities is the []string of product names being compared.
	FieldEntities = "entities_compared"

	// FieldFocusAreas is the []string of comparison dimensions.
	FieldFocusAreas = "focus_areas"

	// FieldPlan is the *Plan built by the coordinator.
	FieldPlan = "research_plan"

	// FieldSearchResults is the SearchResults gathered by the researcher.
	FieldSearchResults = "search_results"

	// FieldFindings is the Findings map: entity → focus area → findings.
	FieldFindings = "per_entity_findings"

	// FieldValidationNotes is the []string of validator observations.
	FieldValidationNotes = "validation_notes"

	// FieldValidationDone is the bool validation verdict.
	FieldValidationDone = "validation_complete"

	// FieldGaps is the []Gap of missing findings needing re-research.
	FieldGaps = "research_gaps"

	// FieldRevalidations counts how many times the validator sent the run
	// back to research.
	FieldRevalidations = "revalidation_count"

	// FieldConfidence is the float64 quality score in [0,1].
	FieldConfidence = "quality_confidence"

	// FieldQualityRechecks counts quality-control loop-backs to validation.
	FieldQualityRechecks = "quality_recheck_count"

	// FieldQualityNotes is the []string of quality observations.
	FieldQualityNotes = "quality_notes"

	// FieldSummary is the final markdown comparison report.
	FieldSummary = "final_summary"

	// FieldAgentLog accumulates one line per agent action.
	FieldAgentLog = "agent_log"
)

// Step identifiers used by the router.
const (
	StepAnalyzer    = "query_analyzer"
	StepCoordinator = "research_coordinator"
	StepResearcher  = "web_researcher"
	StepAnalyst     = "data_analyst"
	StepValidator   = "validator"
	StepQuality     = "quality_controller"
	StepReporter    = "report_generator"
)

// Plan is the coordinator's output: the search queries to run, keyed by
// entity and focus area.
type Plan struct {
	Entities   []string                     `json:"entities"`
	FocusAreas []string                     `json:"focus_areas"`
	Queries    map[string]map[string]string `json:"queries"`
}

// SearchResults holds raw search hits keyed by entity, then focus area.
type SearchResults map[string]map[string][]provider.SearchHit

// Findings is the structured comparison data: entity → focus area →
// findings text.
type Findings map[string]map[string]string

// Gap names one missing piece of findings and the narrowed query that
// should fill it.
type Gap struct {
	Entity    string `json:"entity"`
	FocusArea string `json:"focus_area"`
	Query     string `json:"query"`
}

// appendLog returns the agent log extended with one entry. The log lives in
// state, so each step returns the grown slice through its patch.
func appendLog(state *flow.State, entry string) []string {
	log := state.GetStrings(FieldAgentLog)
	out := make([]string, 0, len(log)+1)
	out = append(out, log...)
	return append(out, entry)
}

// extractJSON pulls the first JSON object out of an LLM response, tolerating
// markdown code fences and prose around the payload.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		s = strings.TrimPrefix(s, "json")
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// parseResponse decodes an LLM response into v, surfacing malformed output
// as a flow.ParseError for the named step.
func parseResponse(step, raw string, v any) error {
	payload := extractJSON(raw)
	if payload == "" {
		return flow.NewParseError(step, raw, nil)
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return flow.NewParseError(step, raw, err)
	}
	return nil
}
