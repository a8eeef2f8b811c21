// Package provider defines the external capabilities the pipeline consumes:
// LLM completion and web search.
//
// The interfaces are intentionally small. Adapters wrap real provider SDKs
// (go-openai, the Google GenAI SDK, Amazon Bedrock) and the Serper REST API,
// and normalize every failure into *flow.ProviderError so the engine can
// classify them as transient.
package provider

import (
	"context"

	"github.com/rivalscan/rivalscan/flow"
)

// Request describes one completion call.
type Request struct {
	// System is the optional system prompt.
	System string

	// Prompt is the user prompt.
	Prompt string

	// Temperature is the sampling temperature; zero means provider default.
	Temperature float32

	// MaxTokens bounds the generated output; zero means provider default.
	MaxTokens int
}

// Completer is the LLM-completion capability consumed by steps.
type Completer interface {
	// Complete generates text for the request. Quota, auth, network, and
	// timeout failures surface as *flow.ProviderError.
	Complete(ctx context.Context, req Request) (string, error)

	// Model returns the model identifier used by this completer.
	Model() string
}

// SearchHit is one web search result.
type SearchHit struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// Searcher is the web-search capability consumed by the research step.
type Searcher interface {
	// Search returns up to limit hits for the query, best first. Failures
	// surface as *flow.ProviderError.
	Search(ctx context.Context, query string, limit int) ([]SearchHit, error)
}

// wrapErr normalizes an SDK error into a flow.ProviderError unless it
// already is one.
func wrapErr(provider, message string, err error) error {
	if err == nil {
		return nil
	}
	return flow.NewProviderError(provider, message, err)
}
