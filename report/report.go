// Package report implements the result sink: it renders a completed run's
// final state into JSON, markdown, and plain-text artifacts on disk.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rivalscan/rivalscan/agents"
	"github.com/rivalscan/rivalscan/flow"
)

// Writer renders final run state into a per-run directory.
//
// Artifact IDs are stable per kind and run ("data_<runID>" and so on), so
// downstream listing survives re-renders. A failure to produce one artifact
// does not stop the others; all failures come back joined in one error that
// the engine reports as a warning.
type Writer struct {
	dir string
}

// Verify interface compliance.
var _ flow.Sink = (*Writer)(nil)

// NewWriter creates a writer rooted at dir.
func NewWriter(dir string) (*Writer, error) {
	if dir == "" {
		return nil, fmt.Errorf("report writer requires an output directory")
	}
	return &Writer{dir: dir}, nil
}

// Render produces the run's artifacts: the raw data as JSON, the comparison
// report as markdown, and a short plain-text summary.
func (w *Writer) Render(ctx context.Context, runID string, state *flow.State) ([]flow.Artifact, error) {
	runDir := filepath.Join(w.dir, "run_"+runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}

	var (
		artifacts []flow.Artifact
		errs      []error
	)
	emit := func(kind flow.ArtifactKind, filename string, payload []byte) {
		path := filepath.Join(runDir, filename)
		if err := os.WriteFile(path, payload, 0o644); err != nil {
			errs = append(errs, fmt.Errorf("failed to write %s artifact: %w", kind, err))
			return
		}
		artifacts = append(artifacts, flow.Artifact{
			Kind:     kind,
			ID:       fmt.Sprintf("%s_%s", kind, runID),
			Location: path,
		})
	}

	if payload, err := json.MarshalIndent(dataDocument(state), "", "  "); err != nil {
		errs = append(errs, fmt.Errorf("failed to encode data artifact: %w", err))
	} else {
		emit(flow.ArtifactData, "comparison_data.json", payload)
	}

	if summary := state.GetString(agents.FieldSummary); summary != "" {
		emit(flow.ArtifactReport, "comparison_report.md", []byte(summary+"\n"))
	} else {
		errs = append(errs, fmt.Errorf("final summary missing from state"))
	}

	emit(flow.ArtifactSummary, "run_summary.txt", []byte(textSummary(runID, state)))

	return artifacts, errors.Join(errs...)
}

// dataDocument shapes the stable output contract consumed by downstream
// renderers.
func dataDocument(state *flow.State) map[string]any {
	findings, _ := state.Get(agents.FieldFindings)
	return map[string]any{
		agents.FieldQuery:           state.GetString(agents.FieldQuery),
		agents.FieldEntities:        state.GetStrings(agents.FieldEntities),
		agents.FieldFindings:        findings,
		agents.FieldValidationNotes: state.GetStrings(agents.FieldValidationNotes),
		agents.FieldSummary:         state.GetString(agents.FieldSummary),
	}
}

func textSummary(runID string, state *flow.State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Comparison run %s\n", runID)
	fmt.Fprintf(&b, "%s\n\n", strings.Repeat("=", 60))
	fmt.Fprintf(&b, "Query: %s\n", state.GetString(agents.FieldQuery))
	fmt.Fprintf(&b, "Entities: %s\n\n", strings.Join(state.GetStrings(agents.FieldEntities), ", "))

	if notes := state.GetStrings(agents.FieldValidationNotes); len(notes) > 0 {
		b.WriteString("Validation notes:\n")
		for _, note := range notes {
			fmt.Fprintf(&b, "  - %s\n", note)
		}
		b.WriteString("\n")
	}

	if log := state.GetStrings(agents.FieldAgentLog); len(log) > 0 {
		b.WriteString("Agent activity:\n")
		for _, entry := range log {
			fmt.Fprintf(&b, "  %s\n", entry)
		}
	}
	return b.String()
}
