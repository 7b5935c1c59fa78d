// Package embedding produces vector embeddings for text, via an
// OpenAI-compatible HTTP endpoint or a deterministic mock, with an
// optional LRU cache decorator.
package embedding

import "context"

// Embedder produces vector embeddings for text. Every vector returned by
// one embedder has the same dimensionality.
type Embedder interface {
	// EmbedQuery embeds a single query string.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// EmbedDocuments embeds a batch of document texts, one vector per
	// input in the same order.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the embedding dimensionality, or 0 when it is
	// not yet known (remote embedders discover it on first use).
	Dimensions() int
	Close() error
}
