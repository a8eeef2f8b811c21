package provider

import (
	"context"
	"os"

	"github.com/sashabaranov/go-openai"

	"github.com/rivalscan/rivalscan/flow"
)

// OpenAI is a Completer backed by OpenAI's chat completion API.
//
// Because OpenRouter speaks the same protocol, pointing BaseURL at
// https://openrouter.ai/api/v1 turns this adapter into an OpenRouter client
// for any model OpenRouter hosts.
//
// Example:
//
//	llm := NewOpenAI(OpenAIConfig{Model: "gpt-4o"})
//	text, err := llm.Complete(ctx, Request{Prompt: "Compare HubSpot and Zoho pricing."})
type OpenAI struct {
	client *openai.Client
	model  string
}

// OpenAIConfig holds adapter configuration.
type OpenAIConfig struct {
	// APIKey authenticates requests. Falls back to OPENAI_API_KEY.
	APIKey string

	// Model is the model identifier (default: gpt-4o-mini).
	Model string

	// BaseURL overrides the API endpoint, e.g. for OpenRouter.
	BaseURL string
}

// Verify interface compliance.
var _ Completer = (*OpenAI)(nil)

// NewOpenAI creates a new OpenAI completion adapter.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}
}

// Model returns the model identifier.
func (o *OpenAI) Model() string {
	return o.model
}

// Complete generates a completion via the chat completions endpoint.
func (o *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	chatReq := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: messages,
	}
	if req.Temperature > 0 {
		chatReq.Temperature = req.Temperature
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}

	resp, err := o.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", wrapErr("openai", "chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", flow.NewProviderError("openai", "response contained no choices", nil)
	}
	return resp.Choices[0].Message.Content, nil
}
