package vector

import (
	"errors"
	"sync"

	"github.com/hyperjump/kotaeru/internal/models"
)

// Errors surfaced by stores. All are returned wrapped with call-site
// context and should be matched with errors.Is.
var (
	// ErrLengthMismatch means Add was given document and embedding
	// sequences of different lengths.
	ErrLengthMismatch = errors.New("documents and embeddings length mismatch")
	// ErrDimensionMismatch means a vector's dimensionality differs from
	// the dimensionality established by the store's first insertion.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrUnsupportedMetric means the similarity metric is not one of the
	// known set. Raised at store construction.
	ErrUnsupportedMetric = errors.New("unsupported similarity metric")
)

// Store holds parallel (document, embedding) sequences and answers
// similarity queries over them.
type Store interface {
	Add(docs []models.Document, embeddings [][]float32) error
	Search(query []float32, k int, opts ...SearchOption) ([]models.ScoredDocument, error)
	Clear()
	Count() int
}

// SearchOption adjusts one Search call.
type SearchOption func(*searchParams)

type searchParams struct {
	minScore    float64
	hasMinScore bool
}

// WithMinScore drops results scoring below t before ranking.
func WithMinScore(t float64) SearchOption {
	return func(p *searchParams) {
		p.minScore = t
		p.hasMinScore = true
	}
}

// Guarded wraps a Store with a read-write mutex: Search and Count run
// concurrently, Add and Clear are exclusive. Use it wherever re-ingest can
// overlap queries, e.g. under the HTTP server with a directory watcher.
type Guarded struct {
	mu    sync.RWMutex
	inner Store
}

// NewGuarded wraps inner with reader/writer locking.
func NewGuarded(inner Store) *Guarded {
	return &Guarded{inner: inner}
}

func (g *Guarded) Add(docs []models.Document, embeddings [][]float32) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inner.Add(docs, embeddings)
}

func (g *Guarded) Search(query []float32, k int, opts ...SearchOption) ([]models.ScoredDocument, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.inner.Search(query, k, opts...)
}

func (g *Guarded) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inner.Clear()
}

func (g *Guarded) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.inner.Count()
}

// Documents forwards to the wrapped store's snapshot accessor under the
// read lock. Returns nil when the wrapped store has no such accessor.
func (g *Guarded) Documents() []models.Document {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if s, ok := g.inner.(interface{ Documents() []models.Document }); ok {
		return s.Documents()
	}
	return nil
}

// Embeddings forwards to the wrapped store's snapshot accessor under the
// read lock. Returns nil when the wrapped store has no such accessor.
func (g *Guarded) Embeddings() [][]float32 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if s, ok := g.inner.(interface{ Embeddings() [][]float32 }); ok {
		return s.Embeddings()
	}
	return nil
}
