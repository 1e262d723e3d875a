package reembed

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeVector(t *testing.T) {
	tests := []struct {
		name     string
		input    []float32
		expected []float32
	}{
		{
			name:     "unit vector remains unchanged",
			input:    []float32{1.0, 0.0, 0.0},
			expected: []float32{1.0, 0.0, 0.0},
		},
		{
			name:     "scale non-unit vector",
			input:    []float32{3.0, 4.0},
			expected: []float32{0.6, 0.8},
		},
		{
			name:     "negative values",
			input:    []float32{-1.0, 1.0},
			expected: []float32{-1.0 / float32(math.Sqrt(2)), 1.0 / float32(math.Sqrt(2))},
		},
		{
			name:     "zero vector stays zero",
			input:    []float32{0, 0, 0},
			expected: []float32{0, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeVector(tt.input)
			require.Len(t, result, len(tt.expected))
			for i := range result {
				assert.InDelta(t, tt.expected[i], result[i], 1e-6)
			}
		})
	}
}

func TestNormalizeVector_DoesNotModifyInput(t *testing.T) {
	input := []float32{3, 4}
	_ = NormalizeVector(input)
	assert.Equal(t, []float32{3, 4}, input)
}

func TestNormalizeVector_EmptyVector(t *testing.T) {
	assert.Empty(t, NormalizeVector([]float32{}))
}

func TestCheckEmbeddings(t *testing.T) {
	tests := []struct {
		name       string
		embeddings [][]float32
		records    int
		width      int
		wantErr    bool
	}{
		{"matching", [][]float32{{1, 2}, {3, 4}}, 2, 2, false},
		{"empty batch", nil, 0, 0, false},
		{"count mismatch", [][]float32{{1, 2}}, 2, 0, true},
		{"width mismatch", [][]float32{{1, 2}, {3}}, 2, 0, true},
		{"empty vector", [][]float32{{}}, 1, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			width, err := checkEmbeddings(tt.embeddings, tt.records)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrEmbeddingMismatch)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.width, width)
		})
	}
}
