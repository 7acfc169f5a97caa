// Package embedding maps free text to fixed-length numeric vectors through
// a pluggable remote embedding service.
package embedding

import "context"

// Embedder is the embedding service contract. Implementations must return
// vectors of a stable dimensionality.
type Embedder interface {
	// EmbedText embeds a single text.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds multiple texts in one remote call, preserving
	// order. Callers use this to bound the number of calls made against
	// history corpora.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector dimensionality.
	Dimensions() int
}
