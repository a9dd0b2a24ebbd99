package relate

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratograph/internal/capacity"
	"stratograph/internal/estimate"
)

func testProfile() capacity.Profile {
	return capacity.Profile{
		TargetID:          "test-model",
		ContextLimit:      2000,
		MaxTokensPerChunk: 1000,
		MaxResponseTokens: 400,
		SafetyBuffer:      50,
	}
}

// itemWithCost builds an item whose description pads the serialized form
// to roughly the requested token cost.
func itemWithCost(id string, tokens int) Item {
	it := Item{ID: id, Kind: "concept", Title: "t-" + id}
	base := estimate.NewEstimator().Estimate(serializeItem(it))
	if tokens > base {
		it.Description = strings.Repeat("x", (tokens-base)*estimate.DefaultCharsPerToken)
	}
	return it
}

func makeItems(n, tokensEach int) []Item {
	items := make([]Item, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, itemWithCost(fmt.Sprintf("n%d", i+1), tokensEach))
	}
	return items
}

func TestNeedsSplit(t *testing.T) {
	p := NewPartitioner(nil)
	profile := testProfile()

	t.Run("small batch fits one call", func(t *testing.T) {
		assert.False(t, p.NeedsSplit(makeItems(3, 40), "analyze these", profile))
	})

	t.Run("large batch needs splitting", func(t *testing.T) {
		assert.True(t, p.NeedsSplit(makeItems(10, 200), "analyze these", profile))
	})

	t.Run("response reserve counts against the budget", func(t *testing.T) {
		tight := profile
		tight.MaxResponseTokens = 980
		assert.True(t, p.NeedsSplit(makeItems(2, 40), "analyze", tight))
	})
}

func TestPartition(t *testing.T) {
	p := NewPartitioner(nil)
	profile := testProfile()
	overhead := "analyze these items"

	t.Run("batch that fits returns one chunk", func(t *testing.T) {
		items := makeItems(3, 40)
		chunks, err := p.Partition(items, overhead, profile)
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, 0, chunks[0].Sequence)
		assert.Equal(t, items, chunks[0].Items)
	})

	t.Run("oversized items go one per chunk", func(t *testing.T) {
		// Available budget is ~540; each item costs ~400, so no two fit
		// together.
		items := makeItems(3, 400)
		chunks, err := p.Partition(items, overhead, profile)
		require.NoError(t, err)
		require.Len(t, chunks, 3)
		for i, c := range chunks {
			assert.Equal(t, i, c.Sequence)
			assert.Len(t, c.Items, 1)
		}
	})

	t.Run("single item above the whole budget still gets a chunk", func(t *testing.T) {
		items := []Item{itemWithCost("giant", 5000)}
		chunks, err := p.Partition(items, overhead, profile)
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, items, chunks[0].Items)
	})

	t.Run("overhead leaving no budget is a configuration error", func(t *testing.T) {
		hugeOverhead := strings.Repeat("w ", 2000)
		_, err := p.Partition(makeItems(2, 10), hugeOverhead, profile)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrOverheadTooLarge)
	})

	t.Run("empty input yields no chunks", func(t *testing.T) {
		chunks, err := p.Partition(nil, overhead, profile)
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})
}

// Conservation: concatenating chunk items in sequence order must
// reproduce the input exactly, for every shape of input.
func TestPartitionConservation(t *testing.T) {
	p := NewPartitioner(nil)
	profile := testProfile()

	shapes := []struct {
		name  string
		items []Item
	}{
		{"uniform small", makeItems(20, 30)},
		{"uniform large", makeItems(7, 300)},
		{"mixed sizes", append(makeItems(4, 500), makeItems(9, 25)...)},
		{"single item", makeItems(1, 90)},
		{"oversized mixed in", append([]Item{itemWithCost("huge", 4000)}, makeItems(5, 60)...)},
	}

	for _, tt := range shapes {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := p.Partition(tt.items, "overhead", profile)
			require.NoError(t, err)

			var rebuilt []Item
			for i, c := range chunks {
				assert.Equal(t, i, c.Sequence)
				rebuilt = append(rebuilt, c.Items...)
			}
			if diff := cmp.Diff(tt.items, rebuilt); diff != "" {
				t.Errorf("partition lost or reordered items (-want +got):\n%s", diff)
			}
		})
	}
}

// Budget: every multi-item chunk fits the per-chunk budget together with
// overhead, the response reserve, and the safety buffer.
func TestPartitionBudgetBound(t *testing.T) {
	est := estimate.NewEstimator()
	p := NewPartitioner(est)
	profile := testProfile()
	overhead := "compare the items and report relations"

	items := append(makeItems(15, 120), makeItems(5, 310)...)
	chunks, err := p.Partition(items, overhead, profile)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for _, c := range chunks {
		if len(c.Items) <= 1 {
			continue // oversized single items are exempt
		}
		total := c.EstimatedTokens + est.Estimate(overhead) + profile.MaxResponseTokens + profile.SafetyBuffer
		assert.LessOrEqual(t, total, profile.MaxTokensPerChunk,
			"chunk %d exceeds budget", c.Sequence)
	}
}

// Decision consistency: away from budget boundaries, NeedsSplit agrees
// with whether Partition produced more than one chunk.
func TestNeedsSplitMatchesPartition(t *testing.T) {
	p := NewPartitioner(nil)
	profile := testProfile()
	overhead := "short overhead"

	t.Run("clearly fits", func(t *testing.T) {
		items := makeItems(3, 40)
		chunks, err := p.Partition(items, overhead, profile)
		require.NoError(t, err)
		assert.False(t, p.NeedsSplit(items, overhead, profile))
		assert.Len(t, chunks, 1)
	})

	t.Run("clearly overflows", func(t *testing.T) {
		items := makeItems(12, 200)
		chunks, err := p.Partition(items, overhead, profile)
		require.NoError(t, err)
		assert.True(t, p.NeedsSplit(items, overhead, profile))
		assert.Greater(t, len(chunks), 1)
	})
}

func TestPartitionEstimatedTokens(t *testing.T) {
	est := estimate.NewEstimator()
	p := NewPartitioner(est)

	items := makeItems(6, 150)
	chunks, err := p.Partition(items, "overhead", testProfile())
	require.NoError(t, err)

	for _, c := range chunks {
		sum := 0
		for _, it := range c.Items {
			sum += est.Estimate(serializeItem(it))
		}
		assert.Equal(t, sum, c.EstimatedTokens, "chunk %d", c.Sequence)
	}
}
