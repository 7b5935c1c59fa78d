package vector

import (
	"fmt"
	"sort"

	"github.com/hyperjump/kotaeru/internal/models"
)

// InMemory is a brute-force vector store over two parallel slices. Position
// in the slices is the only identity: documents and embeddings are appended
// in lock-step and only removed by Clear. InMemory is not internally
// synchronized; wrap it in Guarded when writers can overlap readers.
type InMemory struct {
	metric     SimilarityMetric
	dimensions int // 0 until the first successful Add
	documents  []models.Document
	embeddings [][]float32
}

// NewInMemory creates a store scoring with the given metric. An unknown
// metric is a configuration error and is rejected here rather than at
// first use.
func NewInMemory(metric SimilarityMetric) (*InMemory, error) {
	if !metric.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMetric, metric)
	}
	return &InMemory{metric: metric}, nil
}

// Metric returns the store's configured similarity metric.
func (s *InMemory) Metric() SimilarityMetric { return s.metric }

// Add appends documents and their embeddings in lock-step. The two slices
// must be equal in length and every embedding must match the store's
// dimensionality, which is pinned by the first vector ever added. All
// validation happens before any mutation, so a failed Add leaves the store
// unchanged.
func (s *InMemory) Add(docs []models.Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return fmt.Errorf("%w: %d documents, %d embeddings", ErrLengthMismatch, len(docs), len(embeddings))
	}
	dim := s.dimensions
	for i, emb := range embeddings {
		if dim == 0 {
			dim = len(emb)
			continue
		}
		if len(emb) != dim {
			return fmt.Errorf("%w: embedding %d has %d dimensions, store has %d", ErrDimensionMismatch, i, len(emb), dim)
		}
	}
	for i := range docs {
		vec := make([]float32, len(embeddings[i]))
		copy(vec, embeddings[i])
		s.documents = append(s.documents, docs[i])
		s.embeddings = append(s.embeddings, vec)
	}
	s.dimensions = dim
	return nil
}

// Search scores every stored embedding against query under the store's
// metric and returns the k best, highest score first. Ties keep insertion
// order. WithMinScore filters before ranking; k <= 0 disables truncation.
// An empty store yields an empty result, not an error.
func (s *InMemory) Search(query []float32, k int, opts ...SearchOption) ([]models.ScoredDocument, error) {
	if len(s.documents) == 0 {
		return nil, nil
	}
	if len(query) != s.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, store has %d", ErrDimensionMismatch, len(query), s.dimensions)
	}
	var params searchParams
	for _, opt := range opts {
		opt(&params)
	}
	results := make([]models.ScoredDocument, 0, len(s.documents))
	for i, emb := range s.embeddings {
		score := s.metric.score(query, emb)
		if params.hasMinScore && score < params.minScore {
			continue
		}
		results = append(results, models.ScoredDocument{Document: s.documents[i], Score: score})
	}
	// Stable sort so equal scores keep insertion order.
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Clear removes all documents and embeddings. The dimensionality pin is
// released with them; the next Add establishes it anew.
func (s *InMemory) Clear() {
	s.documents = nil
	s.embeddings = nil
	s.dimensions = 0
}

// Count returns the number of stored documents (always equal to the number
// of stored embeddings).
func (s *InMemory) Count() int { return len(s.documents) }

// Dimensions returns the store's established dimensionality, or 0 when the
// store has never held a vector.
func (s *InMemory) Dimensions() int { return s.dimensions }

// Documents returns a copy of the stored documents in insertion order, for
// snapshotting without aliasing live store state.
func (s *InMemory) Documents() []models.Document {
	out := make([]models.Document, len(s.documents))
	copy(out, s.documents)
	return out
}

// Embeddings returns a deep copy of the stored embeddings in insertion
// order.
func (s *InMemory) Embeddings() [][]float32 {
	out := make([][]float32, len(s.embeddings))
	for i, emb := range s.embeddings {
		vec := make([]float32, len(emb))
		copy(vec, emb)
		out[i] = vec
	}
	return out
}
