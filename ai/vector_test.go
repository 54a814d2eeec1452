package ai

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func magnitude(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestNormalize(t *testing.T) {
	t.Run("unit length", func(t *testing.T) {
		got := Normalize([]float32{3, 4})
		assert.InDelta(t, 0.6, got[0], 1e-6)
		assert.InDelta(t, 0.8, got[1], 1e-6)
	})

	t.Run("zero vector", func(t *testing.T) {
		assert.Equal(t, []float32{0, 0, 0}, Normalize([]float32{0, 0, 0}))
	})

	t.Run("does not modify input", func(t *testing.T) {
		in := []float32{3, 4}
		Normalize(in)
		assert.Equal(t, []float32{3, 4}, in)
	})
}

func TestFitDimensions(t *testing.T) {
	t.Run("exact size unchanged", func(t *testing.T) {
		v := []float32{0.1, 0.2, 0.3}
		got, err := FitDimensions(v, 3)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	})

	t.Run("longer is truncated and normalized", func(t *testing.T) {
		got, err := FitDimensions([]float32{3, 4, 12}, 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.InDelta(t, 1.0, magnitude(got), 1e-6)
		assert.InDelta(t, 0.6, got[0], 1e-6)
	})

	t.Run("shorter is an error", func(t *testing.T) {
		_, err := FitDimensions([]float32{1, 2}, 3)
		assert.ErrorIs(t, err, ErrVectorTooShort)
	})

	t.Run("invalid dimensions", func(t *testing.T) {
		_, err := FitDimensions([]float32{1}, 0)
		assert.ErrorIs(t, err, ErrInvalidDimensions)
	})
}

func TestFitAll(t *testing.T) {
	t.Run("count mismatch", func(t *testing.T) {
		_, err := FitAll([][]float32{{1, 0}}, 2, 2)
		assert.ErrorIs(t, err, ErrVectorCountMismatch)
	})

	t.Run("keeps order", func(t *testing.T) {
		got, err := FitAll([][]float32{{1, 0, 0}, {0, 1, 0}}, 2, 2)
		require.NoError(t, err)
		assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, got)
	})

	t.Run("reports failing index", func(t *testing.T) {
		_, err := FitAll([][]float32{{1, 0}, {1}}, 2, 2)
		require.ErrorIs(t, err, ErrVectorTooShort)
		assert.Contains(t, err.Error(), "vector 1")
	})
}
