// Package capacity holds per-inference-target token budget parameters.
// Profiles are static configuration; the registry only reads them.
package capacity

import (
	"fmt"

	"go.uber.org/zap"
)

// Profile describes the token budget of one inference target.
type Profile struct {
	TargetID          string `yaml:"target_id" json:"target_id"`
	ContextLimit      int    `yaml:"context_limit" json:"context_limit"`
	MaxTokensPerChunk int    `yaml:"max_tokens_per_chunk" json:"max_tokens_per_chunk"`
	MaxResponseTokens int    `yaml:"max_response_tokens" json:"max_response_tokens"`
	SafetyBuffer      int    `yaml:"safety_buffer" json:"safety_buffer"`
}

// Validate checks the budget arithmetic: the chunk budget, the response
// reserve, and the safety buffer must fit the context window together.
func (p Profile) Validate() error {
	if p.TargetID == "" {
		return fmt.Errorf("capacity profile missing target_id")
	}
	if p.ContextLimit <= 0 {
		return fmt.Errorf("profile %s: context_limit must be > 0", p.TargetID)
	}
	if p.MaxTokensPerChunk <= 0 {
		return fmt.Errorf("profile %s: max_tokens_per_chunk must be > 0", p.TargetID)
	}
	if p.MaxResponseTokens < 0 || p.SafetyBuffer < 0 {
		return fmt.Errorf("profile %s: reserves must be >= 0", p.TargetID)
	}
	if sum := p.MaxTokensPerChunk + p.MaxResponseTokens + p.SafetyBuffer; sum > p.ContextLimit {
		return fmt.Errorf("profile %s: budget %d exceeds context_limit %d",
			p.TargetID, sum, p.ContextLimit)
	}
	return nil
}

// DefaultProfile is the conservative fallback used for unknown targets.
// Sized well under the smallest context window of the providers we talk
// to, so a misrouted target id degrades to smaller chunks, not failures.
func DefaultProfile(targetID string) Profile {
	return Profile{
		TargetID:          targetID,
		ContextLimit:      16000,
		MaxTokensPerChunk: 8000,
		MaxResponseTokens: 4000,
		SafetyBuffer:      500,
	}
}

// Registry resolves target ids to capacity profiles. Lookups are total:
// an unknown target gets the conservative default and a warn-level
// observability event, never an error.
type Registry struct {
	profiles map[string]Profile
	logger   *zap.Logger
}

// NewRegistry builds a registry from static profiles. Every profile must
// pass Validate; duplicates by target id are rejected.
func NewRegistry(profiles []Profile, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	byID := make(map[string]Profile, len(profiles))
	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := byID[p.TargetID]; dup {
			return nil, fmt.Errorf("duplicate capacity profile for target %s", p.TargetID)
		}
		byID[p.TargetID] = p
	}
	return &Registry{profiles: byID, logger: logger}, nil
}

// ProfileFor returns the profile for targetID, falling back to the
// conservative default when the target is unknown.
func (r *Registry) ProfileFor(targetID string) Profile {
	if p, ok := r.profiles[targetID]; ok {
		return p
	}
	r.logger.Warn("No capacity profile for target, using conservative default",
		zap.String("target", targetID))
	return DefaultProfile(targetID)
}

// Known reports whether targetID has an explicit profile.
func (r *Registry) Known(targetID string) bool {
	_, ok := r.profiles[targetID]
	return ok
}
