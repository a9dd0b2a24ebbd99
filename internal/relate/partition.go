package relate

import (
	"errors"
	"fmt"

	"stratograph/internal/capacity"
	"stratograph/internal/estimate"
)

// ErrOverheadTooLarge means the fixed overhead text plus reserves leave
// no room for even a single item under the given profile. This is a
// configuration fault: retrying the batch cannot fix it.
var ErrOverheadTooLarge = errors.New("overhead text leaves no chunk budget")

// Partitioner decides whether an item list needs splitting and packs it
// into budget-safe chunks. It holds no mutable state beyond its injected
// estimator, so one instance may serve concurrent batches.
type Partitioner struct {
	est *estimate.Estimator
}

// NewPartitioner creates a partitioner over the given estimator. A nil
// estimator gets the default calibration.
func NewPartitioner(est *estimate.Estimator) *Partitioner {
	if est == nil {
		est = estimate.NewEstimator()
	}
	return &Partitioner{est: est}
}

// NeedsSplit reports whether items plus overhead plus the response
// reserve exceed the profile's per-chunk budget.
func (p *Partitioner) NeedsSplit(items []Item, overhead string, profile capacity.Profile) bool {
	total := p.est.Estimate(serializeItems(items)) +
		p.est.Estimate(overhead) +
		profile.MaxResponseTokens
	return total > profile.MaxTokensPerChunk
}

// Partition packs items, in their original order, into chunks whose
// estimated cost fits the budget left after overhead, the response
// reserve, and the safety buffer. A single item costing more than the
// whole budget still gets its own chunk; sub-item splitting is out of
// scope and the provider's rejection of such a chunk is handled as an
// ordinary chunk failure downstream.
func (p *Partitioner) Partition(items []Item, overhead string, profile capacity.Profile) ([]Chunk, error) {
	available := profile.MaxTokensPerChunk -
		p.est.Estimate(overhead) -
		profile.MaxResponseTokens -
		profile.SafetyBuffer
	if available <= 0 {
		return nil, fmt.Errorf("%w: profile %s has %d tokens available", ErrOverheadTooLarge, profile.TargetID, available)
	}

	var chunks []Chunk
	current := Chunk{Sequence: 0}
	runningSum := 0

	for _, it := range items {
		itemCost := p.est.Estimate(serializeItem(it))
		if len(current.Items) > 0 && runningSum+itemCost > available {
			current.EstimatedTokens = runningSum
			chunks = append(chunks, current)
			current = Chunk{Sequence: len(chunks)}
			runningSum = 0
		}
		current.Items = append(current.Items, it)
		runningSum += itemCost
	}

	if len(current.Items) > 0 {
		current.EstimatedTokens = runningSum
		chunks = append(chunks, current)
	}

	return chunks, nil
}
