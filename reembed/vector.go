package reembed

import (
	"fmt"
	"math"
)

// NormalizeVector scales v to unit length and returns a new slice.
// Zero vectors come back as zero vectors of the same width.
func NormalizeVector(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}

	result := make([]float32, len(v))
	if sum == 0 {
		return result
	}

	inv := 1 / math.Sqrt(sum)
	for i, val := range v {
		result[i] = float32(float64(val) * inv)
	}
	return result
}

// checkEmbeddings verifies a batch answer: one non-empty vector per
// record, all of the same width. It returns that width.
func checkEmbeddings(embeddings [][]float32, records int) (int, error) {
	if len(embeddings) != records {
		return 0, fmt.Errorf("%w: expected %d embeddings, got %d", ErrEmbeddingMismatch, records, len(embeddings))
	}
	if records == 0 {
		return 0, nil
	}
	width := len(embeddings[0])
	for i, e := range embeddings {
		if len(e) == 0 || len(e) != width {
			return 0, fmt.Errorf("%w: embedding %d has %d dimensions, want %d", ErrEmbeddingMismatch, i, len(e), width)
		}
	}
	return width, nil
}
