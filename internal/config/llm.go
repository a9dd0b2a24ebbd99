package config

import (
	"fmt"
	"os"
	"time"
)

// LLMConfig configures the inference provider.
type LLMConfig struct {
	Provider  string `yaml:"provider"` // gemini, openai
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	Timeout   string `yaml:"timeout"`
	MaxTokens int    `yaml:"max_tokens"`
}

// TimeoutDuration returns the provider call timeout.
func (c LLMConfig) TimeoutDuration() time.Duration {
	return parseDuration(c.Timeout, 120*time.Second)
}

// ValidateLLM checks provider settings.
func (c *Config) ValidateLLM() error {
	switch c.LLM.Provider {
	case "gemini", "openai":
	case "":
		return fmt.Errorf("llm.provider is required")
	default:
		return fmt.Errorf("unknown llm.provider %q", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.LLM.MaxTokens < 0 {
		return fmt.Errorf("llm.max_tokens must be >= 0")
	}
	return nil
}

// applyEnvOverrides lets credentials come from the environment rather
// than the config file. GEMINI_API_KEY and OPENAI_API_KEY also select
// their provider when none is configured; STRATOGRAPH_API_KEY sets the
// key without touching provider selection.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		if c.LLM.Provider == "" {
			c.LLM.Provider = "gemini"
		}
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		if c.LLM.Provider == "" {
			c.LLM.Provider = "openai"
		}
	}
	if key := os.Getenv("STRATOGRAPH_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
}
