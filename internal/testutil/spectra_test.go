package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGaussianOnBaselinePeakValue(t *testing.T) {
	s := GaussianOnBaseline(200, 10, 1000, 100, 3)

	assert.Len(t, s, 200)
	assert.InDelta(t, 1010, s[100], 1e-9)
	assert.InDelta(t, 10, s[0], 1e-9)
	assert.InDelta(t, s[97], s[103], 1e-9)
}

func TestDeterministicNoiseIsReproducible(t *testing.T) {
	a := DeterministicNoise(Constant(0, 64), 7, 4)
	b := DeterministicNoise(Constant(0, 64), 7, 4)
	c := DeterministicNoise(Constant(0, 64), 8, 4)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	for _, v := range a {
		assert.GreaterOrEqual(t, v, -2.0)
		assert.Less(t, v, 2.0)
	}
}

func TestMaxAbsDiff(t *testing.T) {
	d, err := MaxAbsDiff([]float64{1, 2, 3}, []float64{1, 2.5, 2})
	assert.NoError(t, err)
	assert.InDelta(t, 1.0, d, 1e-12)

	_, err = MaxAbsDiff([]float64{1}, []float64{1, 2})
	assert.Error(t, err)
}
