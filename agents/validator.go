package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rivalscan/rivalscan/flow"
	"github.com/rivalscan/rivalscan/provider"
)

const validatorPrompt = `You are a quality assurance specialist cross-checking
research findings for a product comparison.

Findings:
%s

Respond with ONLY a JSON object of this exact shape:
{"notes": ["observation about consistency or reliability", "..."]}

Note anything inconsistent, outdated, or thinly sourced. Keep each note to
one sentence.`

// Validator cross-checks the structured findings.
//
// The validation verdict is computed deterministically from the findings
// themselves: any entity/focus-area pair with empty findings is a research
// gap, and the presence of gaps makes validation incomplete. The LLM
// contributes review notes only; it never decides routing.
type Validator struct {
	llm provider.Completer
}

// NewValidator creates the validation step.
func NewValidator(llm provider.Completer) *Validator {
	return &Validator{llm: llm}
}

// Name returns the step identifier.
func (v *Validator) Name() string { return StepValidator }

// Requires lists the input fields.
func (v *Validator) Requires() []string {
	return []string{FieldFindings, FieldEntities, FieldFocusAreas}
}

// Produces lists the output fields.
func (v *Validator) Produces() []string {
	return []string{FieldValidationDone, FieldValidationNotes, FieldGaps, FieldRevalidations, FieldAgentLog}
}

type validatorResponse struct {
	Notes []string `json:"notes"`
}

// Run validates the findings.
func (v *Validator) Run(ctx context.Context, state *flow.State) (*flow.Result, error) {
	findings := stateFindings(state)
	entities := state.GetStrings(FieldEntities)
	focusAreas := state.GetStrings(FieldFocusAreas)

	var gaps []Gap
	for _, entity := range entities {
		for _, area := range focusAreas {
			if findings[entity][area] == "" {
				gaps = append(gaps, Gap{
					Entity:    entity,
					FocusArea: area,
					Query:     NarrowedQuery(entity, area),
				})
			}
		}
	}
	complete := len(gaps) == 0

	payload, err := json.Marshal(findings)
	if err != nil {
		return nil, fmt.Errorf("failed to encode findings: %w", err)
	}
	raw, err := v.llm.Complete(ctx, provider.Request{
		Prompt:      fmt.Sprintf(validatorPrompt, payload),
		Temperature: 0.1,
	})
	if err != nil {
		return nil, err
	}
	var parsed validatorResponse
	if err := parseResponse(StepValidator, raw, &parsed); err != nil {
		return nil, err
	}

	notes := parsed.Notes
	revalidations := stateInt(state, FieldRevalidations)
	hint := "findings complete"
	if !complete {
		revalidations++
		notes = append(notes, fmt.Sprintf("%d findings gaps detected, narrowed re-research requested", len(gaps)))
		hint = "request re-research"
	}

	return flow.NewResult(map[string]any{
		FieldValidationDone:  complete,
		FieldValidationNotes: notes,
		FieldGaps:            gaps,
		FieldRevalidations:   revalidations,
		FieldAgentLog: appendLog(state, fmt.Sprintf(
			"validator: complete=%t gaps=%d", complete, len(gaps))),
	}).WithHint(hint), nil
}

// NarrowedQuery builds the focused follow-up query for one findings gap.
func NarrowedQuery(entity, area string) string {
	return fmt.Sprintf("%q %s details plans specifics", entity, area)
}

func stateFindings(state *flow.State) Findings {
	v, _ := state.Get(FieldFindings)
	findings, _ := v.(Findings)
	return findings
}

func stateInt(state *flow.State, field string) int {
	switch v, _ := state.Get(field); n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}
