package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosine_IdenticalVectorsEqualOne(t *testing.T) {
	sim, err := Cosine([]float32{1, 0, 0}, []float32{1, 0, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-6)
}

func TestCosine_OppositeVectorsEqualNegativeOne(t *testing.T) {
	sim, err := Cosine([]float32{1, 0, 0}, []float32{-1, 0, 0})
	require.NoError(t, err)
	assert.InDelta(t, -1.0, sim, 1e-6)
}

func TestCosine_Symmetric(t *testing.T) {
	a := []float32{0.3, 0.5, -0.2}
	b := []float32{0.1, -0.4, 0.9}
	ab, err := Cosine(a, b)
	require.NoError(t, err)
	ba, err := Cosine(b, a)
	require.NoError(t, err)
	assert.Equal(t, ab, ba)
}

func TestCosine_InvariantUnderPositiveScaling(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{4, 5, 6}
	base, err := Cosine(a, b)
	require.NoError(t, err)

	scaled := []float32{2, 4, 6}
	got, err := Cosine(scaled, b)
	require.NoError(t, err)
	assert.InDelta(t, float64(base), float64(got), 1e-5)
}

func TestCosine_RejectsEmptyDimensionMismatchAndZeroMagnitude(t *testing.T) {
	_, err := Cosine(nil, []float32{1})
	assert.Error(t, err)

	_, err = Cosine([]float32{1, 2}, []float32{1, 2, 3})
	assert.Error(t, err)

	_, err = Cosine([]float32{0, 0}, []float32{1, 1})
	assert.Error(t, err)
}

func TestCosine_RejectsNonFiniteValues(t *testing.T) {
	nan := float32(0)
	nan = nan / nan
	_, err := Cosine([]float32{nan, 1}, []float32{1, 1})
	assert.Error(t, err)
}

func TestCosine_ResultBounded(t *testing.T) {
	a := []float32{1e10, -1e10, 1e10}
	b := []float32{1, 1, 1}
	sim, err := Cosine(a, b)
	require.NoError(t, err)
	assert.True(t, sim >= -1 && sim <= 1)
}
