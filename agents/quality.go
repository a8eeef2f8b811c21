package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rivalscan/rivalscan/flow"
	"github.com/rivalscan/rivalscan/provider"
)

const qualityPrompt = `You are performing final quality control on a product
comparison before the report is written.

Findings:
%s

Validation notes:
%s

Respond with ONLY a JSON object of this exact shape:
{"confidence": 0.85, "notes": ["short quality observation", "..."]}

"confidence" is your overall confidence in the findings, between 0 and 1.`

// QualityController scores overall confidence in the validated findings.
//
// The raw LLM score is normalized into a typed state field before any
// routing decision reads it; a score outside [0,1] is malformed output.
type QualityController struct {
	llm provider.Completer
}

// NewQualityController creates the quality control step.
func NewQualityController(llm provider.Completer) *QualityController {
	return &QualityController{llm: llm}
}

// Name returns the step identifier.
func (q *QualityController) Name() string { return StepQuality }

// Requires lists the input fields.
func (q *QualityController) Requires() []string {
	return []string{FieldFindings, FieldValidationNotes}
}

// Produces lists the output fields.
func (q *QualityController) Produces() []string {
	return []string{FieldConfidence, FieldQualityNotes, FieldQualityRechecks, FieldAgentLog}
}

type qualityResponse struct {
	Confidence *float64 `json:"confidence"`
	Notes      []string `json:"notes"`
}

// Run scores the findings.
func (q *QualityController) Run(ctx context.Context, state *flow.State) (*flow.Result, error) {
	findings := stateFindings(state)
	payload, err := json.Marshal(findings)
	if err != nil {
		return nil, fmt.Errorf("failed to encode findings: %w", err)
	}

	notesPayload, err := json.Marshal(state.GetStrings(FieldValidationNotes))
	if err != nil {
		return nil, fmt.Errorf("failed to encode validation notes: %w", err)
	}

	raw, err := q.llm.Complete(ctx, provider.Request{
		Prompt:      fmt.Sprintf(qualityPrompt, payload, notesPayload),
		Temperature: 0.1,
	})
	if err != nil {
		return nil, err
	}

	var parsed qualityResponse
	if err := parseResponse(StepQuality, raw, &parsed); err != nil {
		return nil, err
	}
	if parsed.Confidence == nil || *parsed.Confidence < 0 || *parsed.Confidence > 1 {
		return nil, flow.NewParseError(StepQuality, raw,
			fmt.Errorf("confidence missing or outside [0,1]"))
	}

	confidence := *parsed.Confidence
	rechecks := stateInt(state, FieldQualityRechecks) + 1

	return flow.NewResult(map[string]any{
		FieldConfidence:      confidence,
		FieldQualityNotes:    parsed.Notes,
		FieldQualityRechecks: rechecks,
		FieldAgentLog: appendLog(state, fmt.Sprintf(
			"quality_controller: confidence=%.2f check=%d", confidence, rechecks)),
	}), nil
}
