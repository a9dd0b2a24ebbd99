package relate

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsolidate(t *testing.T) {
	c := NewConsolidator(nil)

	t.Run("single chunk passes through untouched", func(t *testing.T) {
		in := []Candidate{
			{FromID: "n1", ToID: "n2", Strength: 0.2},
			{FromID: "n2", ToID: "n1", Strength: 0.9}, // symmetric dup stays
			{FromID: "n3", ToID: "n1", Strength: 0.5},
		}
		out, stats := c.Consolidate(in, true)
		assert.Equal(t, in, out)
		assert.Equal(t, 3, stats.Seen)
		assert.Equal(t, 3, stats.Unique)
	})

	t.Run("symmetric duplicates collapse first occurrence wins", func(t *testing.T) {
		// Chunk 0 found (n1,n2,support,0.9); chunk 1 later reported the
		// reversed pair with a different type and strength. The earlier
		// record wins outright.
		in := []Candidate{
			{FromID: "n1", ToID: "n2", Type: RelationSupport, Strength: 0.9, FromChunk: 0},
			{FromID: "n2", ToID: "n1", Type: RelationDependency, Strength: 0.4, FromChunk: 1},
		}
		out, stats := c.Consolidate(in, false)
		require.Len(t, out, 1)
		assert.Equal(t, "n1", out[0].FromID)
		assert.Equal(t, RelationSupport, out[0].Type)
		assert.Equal(t, 0.9, out[0].Strength)
		assert.Equal(t, 2, stats.Seen)
		assert.Equal(t, 1, stats.Unique)
	})

	t.Run("first occurrence wins even when weaker", func(t *testing.T) {
		in := []Candidate{
			{FromID: "a", ToID: "b", Strength: 0.1, FromChunk: 0},
			{FromID: "a", ToID: "b", Strength: 0.99, FromChunk: 2},
		}
		out, _ := c.Consolidate(in, false)
		require.Len(t, out, 1)
		assert.Equal(t, 0.1, out[0].Strength)
	})

	t.Run("survivors ranked by strength descending", func(t *testing.T) {
		in := []Candidate{
			{FromID: "a", ToID: "b", Strength: 0.3},
			{FromID: "c", ToID: "d", Strength: 0.8},
			{FromID: "e", ToID: "f", Strength: 0.5},
		}
		out, _ := c.Consolidate(in, false)
		require.Len(t, out, 3)
		assert.Equal(t, 0.8, out[0].Strength)
		assert.Equal(t, 0.5, out[1].Strength)
		assert.Equal(t, 0.3, out[2].Strength)
	})

	t.Run("ties keep sequence order", func(t *testing.T) {
		in := []Candidate{
			{FromID: "a", ToID: "b", Strength: 0.5, FromChunk: 0},
			{FromID: "c", ToID: "d", Strength: 0.5, FromChunk: 1},
			{FromID: "e", ToID: "f", Strength: 0.5, FromChunk: 2},
		}
		out, _ := c.Consolidate(in, false)
		require.Len(t, out, 3)
		assert.Equal(t, 0, out[0].FromChunk)
		assert.Equal(t, 1, out[1].FromChunk)
		assert.Equal(t, 2, out[2].FromChunk)
	})

	t.Run("empty input", func(t *testing.T) {
		out, stats := c.Consolidate(nil, false)
		assert.Empty(t, out)
		assert.Equal(t, 0, stats.Seen)
		assert.Equal(t, 0, stats.Unique)
	})
}

// Consolidating the same input twice must yield identical output.
func TestConsolidateIdempotent(t *testing.T) {
	c := NewConsolidator(nil)
	in := []Candidate{
		{FromID: "n1", ToID: "n2", Type: RelationSupport, Strength: 0.9, FromChunk: 0},
		{FromID: "n4", ToID: "n3", Type: RelationOther, Strength: 0.9, FromChunk: 0},
		{FromID: "n2", ToID: "n1", Type: RelationDependency, Strength: 0.4, FromChunk: 1},
		{FromID: "n5", ToID: "n6", Type: RelationContradiction, Strength: 0.2, FromChunk: 1},
		{FromID: "n3", ToID: "n4", Type: RelationSupport, Strength: 0.7, FromChunk: 2},
	}

	first, firstStats := c.Consolidate(append([]Candidate(nil), in...), false)
	second, secondStats := c.Consolidate(append([]Candidate(nil), in...), false)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("consolidation is not deterministic (-first +second):\n%s", diff)
	}
	assert.Equal(t, firstStats, secondStats)
}
