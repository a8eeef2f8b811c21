package agents

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rivalscan/rivalscan/flow"
	"github.com/rivalscan/rivalscan/provider"
)

// TestDataAnalyst_StructuresFindings tests one completion per entity and
// per-area normalization
func TestDataAnalyst_StructuresFindings(t *testing.T) {
	llm := &mockCompleter{responses: []string{
		`{"pricing": "Starts at $15.", "features": "Strong automation."}`,
		`{"pricing": "Free tier available."}`,
	}}
	analyst := NewDataAnalyst(llm)

	state := flow.NewState(map[string]any{
		FieldEntities:   []string{"HubSpot", "Zoho"},
		FieldFocusAreas: []string{"pricing", "features"},
		FieldSearchResults: SearchResults{
			"HubSpot": {"pricing": []provider.SearchHit{{Title: "t", Snippet: "s", URL: "u"}}},
		},
	})

	result, err := analyst.Run(context.Background(), state)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if llm.calls != 2 {
		t.Errorf("expected 2 LLM calls, got %d", llm.calls)
	}

	findings, ok := result.Patch[FieldFindings].(Findings)
	if !ok {
		t.Fatalf("expected Findings in patch, got %T", result.Patch[FieldFindings])
	}
	if findings["HubSpot"]["pricing"] != "Starts at $15." {
		t.Errorf("unexpected HubSpot pricing findings: %q", findings["HubSpot"]["pricing"])
	}
	// A focus area the response omitted becomes an explicit empty entry.
	if got, ok := findings["Zoho"]["features"]; !ok || got != "" {
		t.Errorf("expected empty entry for omitted area, got %q (%v)", got, ok)
	}
}

// TestDataAnalyst_PromptCarriesSearchContext tests that raw hits reach the
// prompt
func TestDataAnalyst_PromptCarriesSearchContext(t *testing.T) {
	llm := &mockCompleter{responses: []string{`{"pricing": "x"}`}}
	analyst := NewDataAnalyst(llm)

	state := flow.NewState(map[string]any{
		FieldEntities:   []string{"HubSpot"},
		FieldFocusAreas: []string{"pricing"},
		FieldSearchResults: SearchResults{
			"HubSpot": {"pricing": []provider.SearchHit{
				{Title: "Pricing page", Snippet: "From $15/user", URL: "https://example.com"},
			}},
		},
	})

	if _, err := analyst.Run(context.Background(), state); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(llm.prompts[0], "From $15/user") {
		t.Error("expected search snippet in prompt")
	}
	if !strings.Contains(llm.prompts[0], "HubSpot") {
		t.Error("expected entity name in prompt")
	}
}

// TestDataAnalyst_MalformedResponse tests parse failure for the whole step
func TestDataAnalyst_MalformedResponse(t *testing.T) {
	llm := &mockCompleter{responses: []string{"not json at all"}}
	analyst := NewDataAnalyst(llm)

	state := flow.NewState(map[string]any{
		FieldEntities:      []string{"HubSpot"},
		FieldFocusAreas:    []string{"pricing"},
		FieldSearchResults: SearchResults{},
	})

	_, err := analyst.Run(context.Background(), state)
	if err == nil {
		t.Fatal("expected parse error")
	}
	var pe *flow.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %T", err)
	}
}

// TestFlattenHits_Empty tests the no-results placeholder
func TestFlattenHits_Empty(t *testing.T) {
	if got := flattenHits(nil); got != "(no results gathered)" {
		t.Errorf("unexpected placeholder: %q", got)
	}
}
