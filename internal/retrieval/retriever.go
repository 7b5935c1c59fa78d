// Package retrieval bridges free-text queries to ranked documents from a
// vector store and renders retrieved documents into a context block.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/kotaeru/internal/embedding"
	"github.com/hyperjump/kotaeru/internal/models"
	"github.com/hyperjump/kotaeru/internal/vector"
	"go.uber.org/zap"
)

// NoRelevantDocuments is the fixed sentinel rendered when retrieval finds
// nothing.
const NoRelevantDocuments = "no relevant documents found"

// Defaults used when no option overrides them.
const (
	DefaultTopK      = 5
	DefaultThreshold = 0.3
)

// Retriever embeds a query, searches the store, and returns ranked
// documents. It holds no state between calls beyond its configured
// defaults.
type Retriever struct {
	store     vector.Store
	embedder  embedding.Embedder
	topK      int
	threshold float64
	logger    *zap.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithTopK sets the default number of results per retrieve.
func WithTopK(k int) Option {
	return func(r *Retriever) {
		if k > 0 {
			r.topK = k
		}
	}
}

// WithThreshold sets the default minimum score per retrieve.
func WithThreshold(t float64) Option {
	return func(r *Retriever) { r.threshold = t }
}

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(r *Retriever) { r.logger = l }
}

// New creates a retriever over store and embedder with default top-k 5 and
// threshold 0.3.
func New(store vector.Store, embedder embedding.Embedder, opts ...Option) *Retriever {
	r := &Retriever{
		store:     store,
		embedder:  embedder,
		topK:      DefaultTopK,
		threshold: DefaultThreshold,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// QueryOption overrides the retriever defaults for one Retrieve call.
type QueryOption func(*queryParams)

type queryParams struct {
	topK      int
	threshold float64
}

// TopK overrides the number of results for this call.
func TopK(k int) QueryOption {
	return func(p *queryParams) { p.topK = k }
}

// Threshold overrides the minimum score for this call.
func Threshold(t float64) QueryOption {
	return func(p *queryParams) { p.threshold = t }
}

// Retrieve embeds query and returns the best-matching documents in ranked
// order, scores stripped. The store is never mutated on the query path.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts ...QueryOption) ([]models.Document, error) {
	params := queryParams{topK: r.topK, threshold: r.threshold}
	for _, opt := range opts {
		opt(&params)
	}
	if params.topK <= 0 {
		params.topK = r.topK
	}

	queryEmbedding, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := r.store.Search(queryEmbedding, params.topK, vector.WithMinScore(params.threshold))
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	r.logger.Debug("retrieved documents",
		zap.String("query", query),
		zap.Int("top_k", params.topK),
		zap.Float64("threshold", params.threshold),
		zap.Int("results", len(results)))

	docs := make([]models.Document, len(results))
	for i, res := range results {
		docs[i] = res.Document
	}
	return docs, nil
}

// FormatDocuments renders documents as a context block: one numbered block
// per document with its source label and chunk position, blocks separated
// by a blank line, in the given (ranked) order. An empty input yields the
// NoRelevantDocuments sentinel.
func (r *Retriever) FormatDocuments(docs []models.Document) string {
	if len(docs) == 0 {
		return NoRelevantDocuments
	}
	blocks := make([]string, len(docs))
	for i, doc := range docs {
		header := fmt.Sprintf("[Document %d] Source: %s", i+1, doc.Source("unknown"))
		if idx, count, ok := doc.ChunkInfo(); ok {
			header += fmt.Sprintf(" (chunk %d/%d)", idx+1, count)
		}
		blocks[i] = header + "\n" + doc.Content
	}
	return strings.Join(blocks, "\n\n")
}
