// Package embeddings provides vector helpers for embedding producers and consumers.
package embeddings

import (
	"math"
)

// Norm returns the Euclidean (L2) length of vector, accumulated in float64.
func Norm(vector []float32) float64 {
	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}

	return math.Sqrt(sumSquares)
}

// NormalizeL2 scales vector in place to unit length so that cosine similarity equals the dot product.
// A zero vector is left unchanged.
func NormalizeL2(vector []float32) {
	magnitude := Norm(vector)
	if magnitude == 0 {
		return
	}

	for i := range vector {
		vector[i] = float32(float64(vector[i]) / magnitude)
	}
}

// Dot returns the dot product of a and b over their common prefix.
func Dot(a, b []float32) float64 {
	n := min(len(a), len(b))

	var sum float64
	for i := range n {
		sum += float64(a[i]) * float64(b[i])
	}

	return sum
}
