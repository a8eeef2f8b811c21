package agents

import (
	"errors"
	"reflect"
	"testing"

	"github.com/rivalscan/rivalscan/flow"
)

// TestExtractJSON tests payload extraction from noisy LLM responses
func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`},
		{"code fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fence without language", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"surrounding prose", `Here you go: {"a": 1} hope that helps!`, `{"a": 1}`},
		{"nested braces", `{"a": {"b": 2}}`, `{"a": {"b": 2}}`},
		{"no json", "I cannot answer that.", ""},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := extractJSON(tc.raw); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

// TestParseResponse tests decoding and error classification
func TestParseResponse(t *testing.T) {
	var out struct {
		Entities []string `json:"entities"`
	}
	if err := parseResponse("step", `{"entities": ["a", "b"]}`, &out); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !reflect.DeepEqual(out.Entities, []string{"a", "b"}) {
		t.Errorf("expected [a b], got %v", out.Entities)
	}

	err := parseResponse("my_step", "no json here", &out)
	if err == nil {
		t.Fatal("expected parse error")
	}
	var pe *flow.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %T", err)
	}
	if pe.Step != "my_step" {
		t.Errorf("expected step 'my_step', got '%s'", pe.Step)
	}

	if err := parseResponse("s", `{"entities": "not an array"}`, &out); err == nil {
		t.Fatal("expected parse error for type mismatch")
	}
}

// TestAppendLog tests that the log grows without mutating earlier entries
func TestAppendLog(t *testing.T) {
	state := flow.NewState(map[string]any{FieldAgentLog: []string{"first"}})

	got := appendLog(state, "second")
	if !reflect.DeepEqual(got, []string{"first", "second"}) {
		t.Errorf("expected [first second], got %v", got)
	}
	// The slice in state is untouched until the engine merges the patch.
	if in := state.GetStrings(FieldAgentLog); !reflect.DeepEqual(in, []string{"first"}) {
		t.Errorf("expected state log unchanged, got %v", in)
	}

	empty := flow.NewState(nil)
	if got := appendLog(empty, "only"); !reflect.DeepEqual(got, []string{"only"}) {
		t.Errorf("expected [only], got %v", got)
	}
}

// TestDedupe tests duplicate and blank removal
func TestDedupe(t *testing.T) {
	got := dedupe([]string{"HubSpot", " hubspot ", "", "Zoho", "HUBSPOT", "Zoho"})
	if !reflect.DeepEqual(got, []string{"HubSpot", "Zoho"}) {
		t.Errorf("expected [HubSpot Zoho], got %v", got)
	}
	if got := dedupe(nil); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}
