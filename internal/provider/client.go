// Package provider defines the inference collaborator consumed by the
// batch engine, plus HTTP and Gemini implementations of it. Transport
// concerns (auth, retry on rate limits, wire formats) live here; the
// engine only sees raw response text or a classified Error.
package provider

import "context"

// Client is the minimal interface the batch engine calls an inference
// provider through. Instructions carries the fixed overhead text for the
// whole batch; payload carries one chunk's serialized items. The caller
// supplies its per-call timeout through ctx.
type Client interface {
	Infer(ctx context.Context, instructions, payload, targetID string) (string, error)
}

// Func adapts a plain function to Client. Used by tests and by callers
// that already have a completion function.
type Func func(ctx context.Context, instructions, payload, targetID string) (string, error)

func (f Func) Infer(ctx context.Context, instructions, payload, targetID string) (string, error) {
	return f(ctx, instructions, payload, targetID)
}
