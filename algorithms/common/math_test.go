package common

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmptySliceHelpers(t *testing.T) {
	assert.Equal(t, 0.0, Sum(nil))
	assert.Equal(t, 0.0, Max(nil))
	assert.Equal(t, -1, ArgMax(nil))
	assert.Equal(t, -1, ArgMin(nil))
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 0.0, StandardDeviation([]float64{3}))
}

func TestArgMaxArgMinReturnFirstOccurrence(t *testing.T) {
	data := []float64{1, 5, 2, 5, -3, -3}

	assert.Equal(t, 1, ArgMax(data))
	assert.Equal(t, 4, ArgMin(data))
	assert.Equal(t, 5.0, Max(data))
	assert.Equal(t, 7.0, Sum(data))
}

func TestEdgePadRepeatsEdgeSamples(t *testing.T) {
	got := EdgePad([]float64{1, 2, 3}, 2)
	assert.Equal(t, []float64{1, 1, 1, 2, 3, 3, 3}, got)

	same := EdgePad([]float64{4, 5}, 0)
	assert.Equal(t, []float64{4, 5}, same)
}

func TestScaledDoesNotAliasInput(t *testing.T) {
	in := []float64{1, 2, 3}
	out := Scaled(2, in)

	assert.Equal(t, []float64{2, 4, 6}, out)
	assert.Equal(t, []float64{1, 2, 3}, in)
}

func TestIsNonNegative(t *testing.T) {
	ok, idx := IsNonNegative([]float64{0, 1, 2})
	assert.True(t, ok)
	assert.Equal(t, -1, idx)

	ok, idx = IsNonNegative([]float64{0, -1e-3, 2})
	assert.False(t, ok)
	assert.Equal(t, 1, idx)

	ok, idx = IsNonNegative([]float64{0, 1, math.NaN()})
	assert.False(t, ok)
	assert.Equal(t, 2, idx)
}

func TestClampIndexAndNextPowerOfTwo(t *testing.T) {
	assert.Equal(t, 0, ClampIndex(-4, 10))
	assert.Equal(t, 9, ClampIndex(12, 10))
	assert.Equal(t, 5, ClampIndex(5, 10))

	assert.Equal(t, 1, NextPowerOfTwo(0))
	assert.Equal(t, 256, NextPowerOfTwo(200))
	assert.Equal(t, 256, NextPowerOfTwo(256))
}

func TestMeanAndStandardDeviation(t *testing.T) {
	data := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	assert.InDelta(t, 5.0, Mean(data), 1e-12)
	// sample standard deviation (n-1)
	assert.InDelta(t, math.Sqrt(32.0/7.0), StandardDeviation(data), 1e-12)
}
