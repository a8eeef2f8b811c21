package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestDefault tests the stock configuration values
func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.LLM.Provider != "openai" {
		t.Errorf("expected openai provider, got '%s'", cfg.LLM.Provider)
	}
	if cfg.Runs.MaxTicks != 24 {
		t.Errorf("expected max ticks 24, got %d", cfg.Runs.MaxTicks)
	}
	if cfg.Runs.ConfidenceThreshold != 0.7 {
		t.Errorf("expected threshold 0.7, got %g", cfg.Runs.ConfidenceThreshold)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected default config to validate, got %v", err)
	}
}

// TestLoad_YAMLFile tests file values layered over defaults
func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	payload := `
llm:
  provider: gemini
  model: gemini-2.0-flash
search:
  limit: 3
runs:
  max_ticks: 12
  confidence_threshold: 0.8
output_dir: /tmp/rivalscan-out
`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.LLM.Provider != "gemini" {
		t.Errorf("expected gemini, got '%s'", cfg.LLM.Provider)
	}
	if cfg.Search.Limit != 3 {
		t.Errorf("expected limit 3, got %d", cfg.Search.Limit)
	}
	if cfg.Runs.MaxTicks != 12 {
		t.Errorf("expected max ticks 12, got %d", cfg.Runs.MaxTicks)
	}
	// Values the file does not mention keep their defaults.
	if cfg.Runs.MaxRetries != 2 {
		t.Errorf("expected default max retries, got %d", cfg.Runs.MaxRetries)
	}
	if cfg.Runs.StepTimeout != 60*time.Second {
		t.Errorf("expected default step timeout, got %v", cfg.Runs.StepTimeout)
	}
}

// TestLoad_EnvOverridesFile tests the precedence order
func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("llm:\n  provider: openai\n  model: gpt-4o\n"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("RIVALSCAN_LLM_PROVIDER", "openrouter")
	t.Setenv("RIVALSCAN_LLM_MODEL", "anthropic/claude-sonnet")
	t.Setenv("OPENROUTER_API_KEY", "or-key")
	t.Setenv("SERPER_API_KEY", "serper-key")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.LLM.Provider != "openrouter" {
		t.Errorf("expected env provider to win, got '%s'", cfg.LLM.Provider)
	}
	if cfg.LLM.Model != "anthropic/claude-sonnet" {
		t.Errorf("expected env model to win, got '%s'", cfg.LLM.Model)
	}
	if cfg.LLM.APIKey != "or-key" {
		t.Errorf("expected openrouter key, got '%s'", cfg.LLM.APIKey)
	}
	if cfg.Search.APIKey != "serper-key" {
		t.Errorf("expected serper key, got '%s'", cfg.Search.APIKey)
	}
}

// TestLoad_MissingFile tests the error path for a bad config path
func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

// TestLoad_EmptyPathUsesDefaults tests that no file is required
func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.OutputDir != "results" {
		t.Errorf("expected default output dir, got '%s'", cfg.OutputDir)
	}
}

// TestValidate tests the invariant checks
func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown provider", func(c *Config) { c.LLM.Provider = "cohere" }, "provider"},
		{"zero max ticks", func(c *Config) { c.Runs.MaxTicks = 0 }, "max_ticks"},
		{"negative retries", func(c *Config) { c.Runs.MaxRetries = -1 }, "max_retries"},
		{"threshold above one", func(c *Config) { c.Runs.ConfidenceThreshold = 1.5 }, "confidence_threshold"},
		{"empty output dir", func(c *Config) { c.OutputDir = "" }, "output_dir"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected '%s' in error, got %v", tc.wantErr, err)
			}
		})
	}
}
