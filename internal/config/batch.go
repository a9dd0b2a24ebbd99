package config

import (
	"fmt"
	"time"
)

// BatchConfig enforces batch dispatch limits.
type BatchConfig struct {
	MaxConcurrentChunks int    `yaml:"max_concurrent_chunks"` // Max simultaneous provider calls per batch
	ChunkTimeout        string `yaml:"chunk_timeout"`         // Per-chunk provider call timeout
}

// ChunkTimeoutDuration returns the per-chunk dispatch timeout.
func (c BatchConfig) ChunkTimeoutDuration() time.Duration {
	return parseDuration(c.ChunkTimeout, 2*time.Minute)
}

// ValidateBatch checks that batch limits are within acceptable ranges.
func (c *Config) ValidateBatch() error {
	if c.Batch.MaxConcurrentChunks < 1 {
		return fmt.Errorf("batch.max_concurrent_chunks must be >= 1")
	}
	if c.Batch.ChunkTimeout != "" {
		if _, err := time.ParseDuration(c.Batch.ChunkTimeout); err != nil {
			return fmt.Errorf("batch.chunk_timeout is not a duration: %w", err)
		}
	}
	return nil
}
