package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rivalscan/rivalscan/flow"
)

// DefaultSerperBaseURL is the production Serper endpoint.
const DefaultSerperBaseURL = "https://google.serper.dev"

// Serper is a Searcher backed by the Serper Google-search REST API.
//
// Example:
//
//	search := NewSerper(SerperConfig{})
//	hits, err := search.Search(ctx, "HubSpot CRM pricing 2024 small business", 5)
type Serper struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// SerperConfig holds adapter configuration.
type SerperConfig struct {
	// APIKey authenticates requests. Falls back to SERPER_API_KEY.
	APIKey string

	// BaseURL overrides the endpoint, mostly for tests.
	BaseURL string

	// HTTPClient overrides the default client (30s timeout).
	HTTPClient *http.Client
}

var _ Searcher = (*Serper)(nil)

// NewSerper creates a new Serper search adapter.
func NewSerper(cfg SerperConfig) *Serper {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("SERPER_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultSerperBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Serper{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		client:  cfg.HTTPClient,
	}
}

type serperRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
}

type serperResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
	} `json:"organic"`
	AnswerBox *struct {
		Answer string `json:"answer"`
		Title  string `json:"title"`
		Link   string `json:"link"`
	} `json:"answerBox"`
}

// Search executes one query and returns the organic hits, with the answer
// box (when present) promoted to the front.
func (s *Serper) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 10
	}

	body, err := json.Marshal(serperRequest{Q: query, Num: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("X-API-KEY", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, wrapErr("serper", "search request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, flow.NewProviderError("serper",
			fmt.Sprintf("search returned status %d: %s", resp.StatusCode, payload), nil)
	}

	var parsed serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, wrapErr("serper", "failed to decode search response", err)
	}

	hits := make([]SearchHit, 0, len(parsed.Organic)+1)
	if parsed.AnswerBox != nil && parsed.AnswerBox.Answer != "" {
		hits = append(hits, SearchHit{
			Title:   parsed.AnswerBox.Title,
			Snippet: parsed.AnswerBox.Answer,
			URL:     parsed.AnswerBox.Link,
		})
	}
	for _, item := range parsed.Organic {
		hits = append(hits, SearchHit{Title: item.Title, Snippet: item.Snippet, URL: item.Link})
	}
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}
