package relate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"stratograph/internal/capacity"
	"stratograph/internal/estimate"
	"stratograph/internal/provider"
)

// Options tunes batch dispatch.
type Options struct {
	// MaxConcurrentChunks bounds the worker pool. 1 means sequential.
	MaxConcurrentChunks int
	// ChunkTimeout is the per-call timeout for one provider dispatch.
	ChunkTimeout time.Duration
}

// DefaultOptions returns the dispatch defaults.
func DefaultOptions() Options {
	return Options{
		MaxConcurrentChunks: 4,
		ChunkTimeout:        2 * time.Minute,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxConcurrentChunks < 1 {
		o.MaxConcurrentChunks = DefaultOptions().MaxConcurrentChunks
	}
	if o.ChunkTimeout <= 0 {
		o.ChunkTimeout = DefaultOptions().ChunkTimeout
	}
	return o
}

// Orchestrator runs whole batches: partition, dispatch every chunk to
// the provider, validate what comes back, consolidate. Instances are
// built per service from configuration; they share no mutable state, so
// concurrent batches for different targets never interfere.
type Orchestrator struct {
	client       provider.Client
	partitioner  *Partitioner
	consolidator *Consolidator
	opts         Options
	logger       *zap.Logger
}

// NewOrchestrator wires an orchestrator. A nil estimator or logger gets
// defaults; the client is required.
func NewOrchestrator(client provider.Client, est *estimate.Estimator, opts Options, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		client:       client,
		partitioner:  NewPartitioner(est),
		consolidator: NewConsolidator(logger),
		opts:         opts.withDefaults(),
		logger:       logger,
	}
}

// NeedsSplit reports whether the batch exceeds one call's budget.
func (o *Orchestrator) NeedsSplit(items []Item, overhead string, profile capacity.Profile) bool {
	return o.partitioner.NeedsSplit(items, overhead, profile)
}

// Partition exposes the underlying partitioner.
func (o *Orchestrator) Partition(items []Item, overhead string, profile capacity.Profile) ([]Chunk, error) {
	return o.partitioner.Partition(items, overhead, profile)
}

// chunkOutcome is one chunk's slot in the result table. One slot per
// chunk index keeps concurrent workers contention-free and lets the
// merge step walk results in sequence order no matter when calls finish.
// cutOff marks failures caused by batch cancellation, as opposed to
// ordinary provider rejections.
type chunkOutcome struct {
	state      ChunkState
	candidates []Candidate
	failure    *ChunkFailure
	cutOff     bool
}

// RunBatch processes items end to end and returns the consolidated
// result. Chunk-level provider failures are recorded and skipped; a
// batch where every chunk failed still succeeds with an empty candidate
// list. Hard errors are limited to configuration faults (the overhead
// alone cannot fit a chunk) and caller cancellation. On cancellation the
// partial result is returned alongside the context error, flagged
// Partial, with chunks completed before the cancellation intact.
func (o *Orchestrator) RunBatch(ctx context.Context, items []Item, overhead string, profile capacity.Profile) (*BatchResult, error) {
	batchID := uuid.NewString()
	log := o.logger.With(zap.String("batch", batchID), zap.String("target", profile.TargetID))

	log.Info("Planning batch",
		zap.Stringer("state", BatchPlanning),
		zap.Int("items", len(items)))
	chunks, err := o.partitioner.Partition(items, overhead, profile)
	if err != nil {
		return nil, fmt.Errorf("batch %s: %w", batchID, err)
	}

	universe := make(map[string]struct{}, len(items))
	for _, it := range items {
		universe[it.ID] = struct{}{}
	}

	log.Info("Dispatching chunks",
		zap.Stringer("state", BatchProcessing),
		zap.Int("chunks", len(chunks)),
		zap.Int("workers", o.opts.MaxConcurrentChunks))

	outcomes := make([]chunkOutcome, len(chunks))
	var g errgroup.Group
	g.SetLimit(o.opts.MaxConcurrentChunks)

	for i, chunk := range chunks {
		g.Go(func() error {
			outcomes[i] = o.processChunk(ctx, chunk, overhead, profile.TargetID, universe, log)
			return nil
		})
	}
	// Workers never return errors; failures live in their outcome slots.
	_ = g.Wait()

	result := &BatchResult{
		BatchID:     batchID,
		ChunksTotal: len(chunks),
	}

	// Merge in sequence order, not completion order, so downstream
	// deduplication is reproducible across runs.
	var gathered []Candidate
	cutOff := 0
	for _, out := range outcomes {
		if out.state == ChunkFailed {
			result.ChunksFailed++
			result.Failures = append(result.Failures, *out.failure)
			if out.cutOff {
				cutOff++
			}
			continue
		}
		gathered = append(gathered, out.candidates...)
	}

	// Partial means the cancellation cut off at least one chunk while
	// at least one other completed. Failures the provider caused on its
	// own do not make a cancelled batch partial.
	cancelled := ctx.Err() != nil
	completed := result.ChunksTotal - result.ChunksFailed
	result.Partial = cancelled && cutOff > 0 && completed > 0

	log.Debug("Consolidating candidates",
		zap.Stringer("state", BatchConsolidating),
		zap.Int("gathered", len(gathered)))
	result.Candidates, _ = o.consolidator.Consolidate(gathered, len(chunks) == 1)
	if result.Candidates == nil {
		result.Candidates = []Candidate{}
	}
	result.CandidatesSeen = len(gathered)

	log.Info("Batch done",
		zap.Stringer("state", BatchDone),
		zap.Int("chunks_total", result.ChunksTotal),
		zap.Int("chunks_failed", result.ChunksFailed),
		zap.Int("candidates", len(result.Candidates)),
		zap.Bool("partial", result.Partial))

	if cancelled {
		return result, fmt.Errorf("batch %s cancelled: %w", batchID, ctx.Err())
	}
	return result, nil
}

// processChunk dispatches one chunk and validates its response. Any
// provider error fails this chunk only; a response with no parseable
// array completes with zero candidates.
func (o *Orchestrator) processChunk(ctx context.Context, chunk Chunk, overhead, targetID string, universe map[string]struct{}, log *zap.Logger) chunkOutcome {
	if err := ctx.Err(); err != nil {
		// Straight from ChunkPending to ChunkFailed: the batch was
		// cancelled before this chunk was ever dispatched.
		return chunkOutcome{
			state:  ChunkFailed,
			cutOff: true,
			failure: &ChunkFailure{
				Sequence: chunk.Sequence,
				Kind:     string(provider.KindTransport),
				Reason:   "batch cancelled before dispatch",
			},
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, o.opts.ChunkTimeout)
	defer cancel()

	log.Debug("Dispatching chunk",
		zap.Stringer("state", ChunkDispatched),
		zap.Int("sequence", chunk.Sequence),
		zap.Int("items", len(chunk.Items)),
		zap.Int("estimated_tokens", chunk.EstimatedTokens))

	response, err := o.client.Infer(callCtx, overhead, serializeItems(chunk.Items), targetID)
	if err != nil {
		kind := provider.KindOf(err)
		log.Warn("Chunk failed",
			zap.Int("sequence", chunk.Sequence),
			zap.String("kind", string(kind)),
			zap.Error(err))
		return chunkOutcome{
			state: ChunkFailed,
			// ctx, not callCtx: a chunk that merely hit its own
			// timeout was not cut off by the caller.
			cutOff: ctx.Err() != nil,
			failure: &ChunkFailure{
				Sequence: chunk.Sequence,
				Kind:     string(kind),
				Reason:   err.Error(),
			},
		}
	}

	records := extractCandidateArray(response)
	if records == nil {
		// Parse miss: the model produced no structured answer.
		log.Debug("Chunk produced no candidate array", zap.Int("sequence", chunk.Sequence))
		return chunkOutcome{state: ChunkCompleted}
	}

	candidates := validateCandidates(records, universe, chunk.Sequence)
	if dropped := len(records) - len(candidates); dropped > 0 {
		log.Debug("Dropped invalid candidates",
			zap.Int("sequence", chunk.Sequence),
			zap.Int("dropped", dropped))
	}
	return chunkOutcome{state: ChunkCompleted, candidates: candidates}
}
