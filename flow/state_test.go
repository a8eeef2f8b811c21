package flow

import (
	"reflect"
	"testing"
)

// TestState_GetSet tests basic reads and writes
func TestState_GetSet(t *testing.T) {
	s := NewState(map[string]any{"query": "compare A and B"})

	v, ok := s.Get("query")
	if !ok {
		t.Fatal("expected 'query' to be present")
	}
	if v != "compare A and B" {
		t.Errorf("expected query value, got %v", v)
	}

	if _, ok := s.Get("absent"); ok {
		t.Error("expected 'absent' to be missing")
	}

	s.Set("count", 3)
	if got, ok := s.GetFloat("count"); !ok || got != 3 {
		t.Errorf("expected count 3, got %v (%v)", got, ok)
	}
}

// TestState_TypedGetters tests the typed accessor conversions
func TestState_TypedGetters(t *testing.T) {
	s := NewState(map[string]any{
		"name":     "zoho",
		"done":     true,
		"ratio":    0.7,
		"entities": []string{"a", "b"},
		"areas":    []any{"pricing", "features", 42},
	})

	if got := s.GetString("name"); got != "zoho" {
		t.Errorf("expected 'zoho', got '%s'", got)
	}
	if got := s.GetString("done"); got != "" {
		t.Errorf("expected empty string for non-string field, got '%s'", got)
	}
	if !s.GetBool("done") {
		t.Error("expected done to be true")
	}
	if s.GetBool("name") {
		t.Error("expected non-bool field to read as false")
	}
	if got, ok := s.GetFloat("ratio"); !ok || got != 0.7 {
		t.Errorf("expected 0.7, got %v (%v)", got, ok)
	}
	if _, ok := s.GetFloat("name"); ok {
		t.Error("expected GetFloat to fail on a string field")
	}
	if got := s.GetStrings("entities"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("expected [a b], got %v", got)
	}
	// Non-string elements of an []any are skipped, not errored.
	if got := s.GetStrings("areas"); !reflect.DeepEqual(got, []string{"pricing", "features"}) {
		t.Errorf("expected [pricing features], got %v", got)
	}
	if got := s.GetStrings("absent"); got != nil {
		t.Errorf("expected nil for absent field, got %v", got)
	}
}

// TestState_HasMissing tests presence checks
func TestState_HasMissing(t *testing.T) {
	s := NewState(map[string]any{"a": 1, "b": 2})

	if !s.Has("a", "b") {
		t.Error("expected Has(a, b) to be true")
	}
	if s.Has("a", "c") {
		t.Error("expected Has(a, c) to be false")
	}
	if !s.Has() {
		t.Error("expected Has() with no fields to be true")
	}

	missing := s.Missing("a", "c", "d")
	if !reflect.DeepEqual(missing, []string{"c", "d"}) {
		t.Errorf("expected [c d], got %v", missing)
	}
	if got := s.Missing("a", "b"); got != nil {
		t.Errorf("expected nil missing, got %v", got)
	}
}

// TestState_Merge tests patch application and overwrite reporting
func TestState_Merge(t *testing.T) {
	s := NewState(map[string]any{"a": 1, "b": 2})

	overwritten := s.Merge(map[string]any{"b": 20, "c": 30, "a": 10})
	if !reflect.DeepEqual(overwritten, []string{"a", "b"}) {
		t.Errorf("expected overwritten [a b], got %v", overwritten)
	}
	if v, _ := s.Get("b"); v != 20 {
		t.Errorf("expected b=20, got %v", v)
	}
	if v, _ := s.Get("c"); v != 30 {
		t.Errorf("expected c=30, got %v", v)
	}
	if s.Len() != 3 {
		t.Errorf("expected 3 fields, got %d", s.Len())
	}

	if got := s.Merge(map[string]any{"d": 4}); got != nil {
		t.Errorf("expected no overwrites for fresh field, got %v", got)
	}
}

// TestState_Snapshot tests that snapshots are decoupled at the top level
func TestState_Snapshot(t *testing.T) {
	s := NewState(map[string]any{"a": 1})
	snap := s.Snapshot()

	s.Set("a", 2)
	s.Set("b", 3)

	if snap["a"] != 1 {
		t.Errorf("expected snapshot a=1, got %v", snap["a"])
	}
	if _, ok := snap["b"]; ok {
		t.Error("expected snapshot to not see later writes")
	}
}
