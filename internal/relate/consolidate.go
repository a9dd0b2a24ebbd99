package relate

import (
	"sort"

	"go.uber.org/zap"
)

// ConsolidationStats summarizes one consolidation pass.
type ConsolidationStats struct {
	Seen   int `json:"seen"`
	Unique int `json:"unique"`
}

// Consolidator merges candidates gathered across chunks into one
// deduplicated, ranked list.
type Consolidator struct {
	logger *zap.Logger
}

// NewConsolidator creates a consolidator. A nil logger is replaced with
// a no-op.
func NewConsolidator(logger *zap.Logger) *Consolidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consolidator{logger: logger}
}

// Consolidate deduplicates and ranks candidates. The input must already
// be in chunk sequence order, never completion order, so the first-seen
// rule is deterministic across runs regardless of network timing.
//
// Duplicates collapse on the unordered id pair: the first occurrence
// wins regardless of its own strength or type. Keeping the strongest
// instead might look better, but downstream consumers depend on the
// first-seen behavior, so it stays. Survivors are stable-sorted by
// strength descending, preserving sequence order among ties.
//
// singleChunk short-circuits the whole pass: a batch that never split
// must come back exactly as its one chunk produced it.
func (c *Consolidator) Consolidate(candidates []Candidate, singleChunk bool) ([]Candidate, ConsolidationStats) {
	stats := ConsolidationStats{Seen: len(candidates)}

	if singleChunk {
		stats.Unique = len(candidates)
		return candidates, stats
	}

	seen := make(map[pairKey]struct{}, len(candidates))
	kept := make([]Candidate, 0, len(candidates))
	for _, cand := range candidates {
		k := cand.key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, cand)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Strength > kept[j].Strength
	})

	stats.Unique = len(kept)
	if stats.Seen != stats.Unique {
		c.logger.Debug("Collapsed duplicate candidates across chunks",
			zap.Int("seen", stats.Seen),
			zap.Int("unique", stats.Unique))
	}
	return kept, stats
}
