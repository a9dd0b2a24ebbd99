// Package relate implements the adaptive work-partitioning and
// result-consolidation engine behind relationship suggestions. Given an
// ordered set of canvas items and a capacity profile for an inference
// target, it decides whether the batch needs splitting, packs items into
// budget-safe chunks without reordering or losing any, dispatches each
// chunk independently, and merges the partial results into one
// deduplicated, strength-ranked answer.
package relate

import "fmt"

// Item is one unit of input text to be analyzed, typically a canvas
// node. Identity is the ID; items are immutable for the duration of one
// batch.
type Item struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Kind        string `json:"kind"`
	Source      string `json:"source,omitempty"`
}

// RelationType classifies a proposed relation between two items.
type RelationType string

const (
	RelationSupport       RelationType = "support"
	RelationContradiction RelationType = "contradiction"
	RelationDependency    RelationType = "dependency"
	RelationOther         RelationType = "other"
)

// normalizeRelationType maps arbitrary provider output onto the known
// enum, defaulting to RelationOther.
func normalizeRelationType(s string) RelationType {
	switch RelationType(s) {
	case RelationSupport, RelationContradiction, RelationDependency:
		return RelationType(s)
	default:
		return RelationOther
	}
}

// Candidate is a proposed relation between two items returned by the
// provider, after validation. FromChunk records which chunk produced it.
type Candidate struct {
	FromID    string       `json:"from_id"`
	ToID      string       `json:"to_id"`
	Type      RelationType `json:"relation_type"`
	Strength  float64      `json:"strength"`
	Reasoning string       `json:"reasoning,omitempty"`
	Keywords  []string     `json:"keywords,omitempty"`
	FromChunk int          `json:"from_chunk"`
}

// pairKey is the unordered id pair used to collapse symmetric duplicate
// candidates across chunks.
type pairKey struct {
	lo, hi string
}

func (c Candidate) key() pairKey {
	if c.FromID <= c.ToID {
		return pairKey{lo: c.FromID, hi: c.ToID}
	}
	return pairKey{lo: c.ToID, hi: c.FromID}
}

// Chunk is an ordered subset of items that fits one inference call's
// budget together with the fixed overhead text. Chunks partition the
// input: concatenating items across chunks in sequence order reproduces
// the original list exactly.
type Chunk struct {
	Sequence        int    `json:"sequence"`
	Items           []Item `json:"items"`
	EstimatedTokens int    `json:"estimated_tokens"`
}

// ChunkState tracks one chunk through dispatch.
type ChunkState int

const (
	ChunkPending ChunkState = iota
	ChunkDispatched
	ChunkCompleted
	ChunkFailed
)

func (s ChunkState) String() string {
	switch s {
	case ChunkPending:
		return "pending"
	case ChunkDispatched:
		return "dispatched"
	case ChunkCompleted:
		return "completed"
	case ChunkFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// BatchState tracks the batch as a whole. A batch reaches BatchDone even
// when every chunk failed; only configuration errors and caller
// cancellation abort it earlier.
type BatchState int

const (
	BatchPlanning BatchState = iota
	BatchProcessing
	BatchConsolidating
	BatchDone
)

func (s BatchState) String() string {
	switch s {
	case BatchPlanning:
		return "planning"
	case BatchProcessing:
		return "processing"
	case BatchConsolidating:
		return "consolidating"
	case BatchDone:
		return "done"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// ChunkFailure records why one chunk produced no result.
type ChunkFailure struct {
	Sequence int    `json:"sequence"`
	Kind     string `json:"kind"`
	Reason   string `json:"reason"`
}

// BatchResult is the in-memory outcome of one batch. CandidatesSeen
// counts validated candidates before deduplication; Candidates holds the
// deduplicated, strength-ranked survivors. Partial is set when the batch
// was cancelled with some chunks already completed.
type BatchResult struct {
	BatchID        string         `json:"batch_id"`
	Candidates     []Candidate    `json:"candidates"`
	CandidatesSeen int            `json:"candidates_seen"`
	ChunksTotal    int            `json:"chunks_total"`
	ChunksFailed   int            `json:"chunks_failed"`
	Failures       []ChunkFailure `json:"failures,omitempty"`
	Partial        bool           `json:"partial,omitempty"`
}
