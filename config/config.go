// Package config loads pipeline configuration from the environment and an
// optional YAML file. Environment variables win over file values.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	// LLM selects and authenticates the completion provider.
	LLM LLMConfig `yaml:"llm"`

	// Search authenticates the search provider.
	Search SearchConfig `yaml:"search"`

	// Runs tunes orchestration limits.
	Runs RunConfig `yaml:"runs"`

	// OutputDir is where run artifacts land. Default: results
	OutputDir string `yaml:"output_dir"`
}

// LLMConfig configures the completion provider.
type LLMConfig struct {
	// Provider is one of: openai, openrouter, gemini, bedrock.
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Region   string `yaml:"region"`
}

// SearchConfig configures the search provider.
type SearchConfig struct {
	APIKey string `yaml:"api_key"`
	Limit  int    `yaml:"limit"`
}

// RunConfig tunes orchestration limits.
type RunConfig struct {
	MaxTicks            int           `yaml:"max_ticks"`
	MaxRetries          int           `yaml:"max_retries"`
	StepTimeout         time.Duration `yaml:"step_timeout"`
	ConfidenceThreshold float64       `yaml:"confidence_threshold"`
	MaxResearchLoops    int           `yaml:"max_research_loops"`
	MaxQualityLoops     int           `yaml:"max_quality_loops"`
	DefaultEntities     []string      `yaml:"default_entities"`
	DefaultFocusAreas   []string      `yaml:"default_focus_areas"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
		},
		Search: SearchConfig{Limit: 5},
		Runs: RunConfig{
			MaxTicks:            24,
			MaxRetries:          2,
			StepTimeout:         60 * time.Second,
			ConfidenceThreshold: 0.7,
			MaxResearchLoops:    2,
			MaxQualityLoops:     1,
		},
		OutputDir: "results",
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is non-empty), then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		payload, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(payload, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("RIVALSCAN_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" && cfg.LLM.Provider == "openrouter" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("RIVALSCAN_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("RIVALSCAN_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("SERPER_API_KEY"); v != "" {
		cfg.Search.APIKey = v
	}
	if v := os.Getenv("RIVALSCAN_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
}

// Validate checks invariants that would otherwise surface mid-run.
func (c Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "openrouter", "gemini", "bedrock":
	default:
		return fmt.Errorf("unknown llm provider '%s'", c.LLM.Provider)
	}
	if c.Runs.MaxTicks <= 0 {
		return fmt.Errorf("max_ticks must be positive, got %d", c.Runs.MaxTicks)
	}
	if c.Runs.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative, got %d", c.Runs.MaxRetries)
	}
	if c.Runs.ConfidenceThreshold < 0 || c.Runs.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be in [0,1], got %g", c.Runs.ConfidenceThreshold)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir must not be empty")
	}
	return nil
}
