package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rivalscan/rivalscan/flow"
	"github.com/rivalscan/rivalscan/provider"
)

const reporterPrompt = `Write a comparison report in markdown answering this query:

%q

Products compared: %s

Structured findings:
%s

Validation notes:
%s

The report should open with a short executive summary, then compare the
products per focus area, and close with a recommendation. Write the report
directly, no preamble.`

// ReportGenerator writes the final comparison summary. The report is free
// text by design; an empty response is still malformed output.
type ReportGenerator struct {
	llm provider.Completer
}

// NewReportGenerator creates the report step.
func NewReportGenerator(llm provider.Completer) *ReportGenerator {
	return &ReportGenerator{llm: llm}
}

// Name returns the step identifier.
func (r *ReportGenerator) Name() string { return StepReporter }

// Requires lists the input fields.
func (r *ReportGenerator) Requires() []string {
	return []string{FieldQuery, FieldEntities, FieldFindings, FieldValidationNotes}
}

// Produces lists the output fields.
func (r *ReportGenerator) Produces() []string {
	return []string{FieldSummary, FieldAgentLog}
}

// Run generates the final summary.
func (r *ReportGenerator) Run(ctx context.Context, state *flow.State) (*flow.Result, error) {
	findings := stateFindings(state)
	payload, err := json.Marshal(findings)
	if err != nil {
		return nil, fmt.Errorf("failed to encode findings: %w", err)
	}
	notesPayload, err := json.Marshal(state.GetStrings(FieldValidationNotes))
	if err != nil {
		return nil, fmt.Errorf("failed to encode validation notes: %w", err)
	}

	raw, err := r.llm.Complete(ctx, provider.Request{
		Prompt: fmt.Sprintf(reporterPrompt,
			state.GetString(FieldQuery),
			strings.Join(state.GetStrings(FieldEntities), ", "),
			payload, notesPayload),
		Temperature: 0.3,
	})
	if err != nil {
		return nil, err
	}

	summary := strings.TrimSpace(raw)
	if summary == "" {
		return nil, flow.NewParseError(StepReporter, raw, fmt.Errorf("empty report"))
	}

	return flow.NewResult(map[string]any{
		FieldSummary: summary,
		FieldAgentLog: appendLog(state, fmt.Sprintf(
			"report_generator: produced %d-character report", len(summary))),
	}), nil
}
