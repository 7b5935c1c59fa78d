// Package vector provides the in-memory vector store and similarity search.
package vector

import (
	"fmt"
	"math"
)

// SimilarityMetric selects the scoring function used by a store. It is
// fixed at construction and applies to every search against that store.
type SimilarityMetric string

const (
	// MetricCosine scores by the cosine of the angle between vectors,
	// in [-1, 1]. Zero-norm vectors are used unnormalized.
	MetricCosine SimilarityMetric = "cosine"
	// MetricDotProduct scores by the raw inner product, unbounded.
	MetricDotProduct SimilarityMetric = "dot_product"
	// MetricEuclidean scores by 1/(1+d) for L2 distance d, in (0, 1],
	// so that higher is better for every metric.
	MetricEuclidean SimilarityMetric = "euclidean"
)

// Valid reports whether m is a known metric.
func (m SimilarityMetric) Valid() bool {
	switch m {
	case MetricCosine, MetricDotProduct, MetricEuclidean:
		return true
	}
	return false
}

// score computes the similarity of two equal-length vectors under m.
// All accumulation happens in float64.
func (m SimilarityMetric) score(a, b []float32) float64 {
	switch m {
	case MetricCosine:
		return cosine(a, b)
	case MetricDotProduct:
		return dot(a, b)
	case MetricEuclidean:
		return 1 / (1 + euclideanDistance(a, b))
	default:
		// Unreachable: the metric is validated at store construction.
		panic(fmt.Sprintf("vector: unknown similarity metric %q", m))
	}
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// cosine is the dot product of both vectors scaled to unit norm. A vector
// with zero norm is left as-is rather than dividing by zero, which makes
// zero-vector placeholders score 0 against everything.
func cosine(a, b []float32) float64 {
	d := dot(a, b)
	if na := norm(a); na > 0 {
		d /= na
	}
	if nb := norm(b); nb > 0 {
		d /= nb
	}
	return d
}

func euclideanDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		diff := float64(a[i]) - float64(b[i])
		sum += diff * diff
	}
	return math.Sqrt(sum)
}
