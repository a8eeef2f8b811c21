package agents

import (
	"context"
	"fmt"

	"github.com/rivalscan/rivalscan/provider"
)

// mockCompleter returns scripted responses in order, or a fixed error.
type mockCompleter struct {
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (m *mockCompleter) Complete(ctx context.Context, req provider.Request) (string, error) {
	m.calls++
	m.prompts = append(m.prompts, req.Prompt)
	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) == 0 {
		return "", fmt.Errorf("mock completer: no scripted response for call %d", m.calls)
	}
	resp := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	return resp, nil
}

func (m *mockCompleter) Model() string { return "mock-model" }

// mockSearcher records queries and returns one canned hit per query.
type mockSearcher struct {
	err     error
	queries []string
}

func (m *mockSearcher) Search(ctx context.Context, query string, limit int) ([]provider.SearchHit, error) {
	m.queries = append(m.queries, query)
	if m.err != nil {
		return nil, m.err
	}
	return []provider.SearchHit{
		{Title: "Result for " + query, Snippet: "snippet", URL: "https://example.com"},
	}, nil
}
