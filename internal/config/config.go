// Package config loads stratograph configuration from YAML with
// environment overrides for credentials.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"stratograph/internal/capacity"
)

// Config holds all stratograph configuration.
type Config struct {
	// LLM provider settings
	LLM LLMConfig `yaml:"llm"`

	// Batch dispatch settings
	Batch BatchConfig `yaml:"batch"`

	// Static capacity profiles, one per inference target
	Capacity []capacity.Profile `yaml:"capacity"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig controls the zap logger built in cmd.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns a runnable configuration: Gemini flash as the
// default target with a conservative profile, four chunk workers.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:  "gemini",
			Model:     "gemini-2.5-flash",
			Timeout:   "120s",
			MaxTokens: 4096,
		},
		Batch: BatchConfig{
			MaxConcurrentChunks: 4,
			ChunkTimeout:        "2m",
		},
		Capacity: []capacity.Profile{
			{
				TargetID:          "gemini-2.5-flash",
				ContextLimit:      1000000,
				MaxTokensPerChunk: 120000,
				MaxResponseTokens: 16000,
				SafetyBuffer:      2000,
			},
			{
				TargetID:          "gpt-4o-mini",
				ContextLimit:      128000,
				MaxTokensPerChunk: 90000,
				MaxResponseTokens: 16000,
				SafetyBuffer:      2000,
			},
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads the config file at path, overlaying it on the defaults and
// applying environment overrides. A missing file is not an error: the
// defaults plus environment are returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.ValidateLLM(); err != nil {
		return err
	}
	if err := c.ValidateBatch(); err != nil {
		return err
	}
	for _, p := range c.Capacity {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// parseDuration parses a YAML duration string with a fallback default.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
