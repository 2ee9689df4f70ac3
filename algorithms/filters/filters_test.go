package filters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-baseline/internal/testutil"
)

func TestSmoothConstantIsIdentity(t *testing.T) {
	in := testutil.Constant(50, 32)
	out := Smooth(in)

	assert.Equal(t, in, out)
}

func TestSmoothConstantNonIntegerWithinRoundOff(t *testing.T) {
	in := testutil.Constant(0.1, 16)
	testutil.RequireSliceNearlyEqual(t, Smooth(in), in, 1e-15)
}

func TestSmoothKnownValues(t *testing.T) {
	// impulse of 9 spreads into the kernel itself
	in := []float64{0, 0, 0, 9, 0, 0, 0}
	out := Smooth(in)

	assert.Equal(t, []float64{0, 1, 2, 3, 2, 1, 0}, out)
}

func TestSmoothUsesEdgePadding(t *testing.T) {
	in := []float64{9, 0, 0, 0, 0}
	out := Smooth(in)

	// padded: 9 9 | 9 0 0 0 0 | 0 0
	assert.InDelta(t, (9+18+27+0+0)/9.0, out[0], 1e-12)
	assert.InDelta(t, (9+18+0+0+0)/9.0, out[1], 1e-12)
	assert.InDelta(t, 1.0, out[2], 1e-12)
}

func TestSmoothDoesNotModifyInputAndIsRepeatable(t *testing.T) {
	in := []float64{1, 4, 9, 16, 25}
	keep := append([]float64(nil), in...)

	first := Smooth(in)
	second := Smooth(in)

	assert.Equal(t, keep, in)
	assert.Equal(t, first, second)
	assert.Empty(t, Smooth(nil))
}

func TestNewWeightedSmootherRejectsBadKernels(t *testing.T) {
	_, err := NewWeightedSmoother([]float64{1, 1})
	assert.Error(t, err)

	_, err = NewWeightedSmoother([]float64{1, -2, 1})
	assert.Error(t, err)

	s, err := NewWeightedSmoother([]float64{1, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, 1, s.HalfWidth())
	testutil.RequireSliceNearlyEqual(t, s.ProcessBuffer([]float64{0, 3, 0}), []float64{1, 1, 1}, 1e-12)
}

func TestFirstDerivative(t *testing.T) {
	d := FirstDerivative([]float64{0, 2, 4, 6, 8})
	assert.Equal(t, []float64{1, 2, 2, 2, 1}, d)

	flat := FirstDerivative(testutil.Constant(7, 10))
	assert.Equal(t, make([]float64, 10), flat)

	assert.Empty(t, FirstDerivative(nil))
	assert.Equal(t, []float64{0}, FirstDerivative([]float64{5}))
}

func TestSmoothedDerivativeOfRampIsSlopeInside(t *testing.T) {
	d := SmoothedDerivative(testutil.Ramp(0, 3, 20))
	for i := 3; i < 17; i++ {
		assert.InDelta(t, 3.0, d[i], 1e-12, "channel %d", i)
	}
}

func TestMovingAverageDirectAndFFTAgree(t *testing.T) {
	in := testutil.DeterministicNoise(testutil.Ramp(10, 0.5, 300), 11, 6)

	direct := NewMovingAverage(20)
	direct.SetFFTThreshold(1 << 20)

	viaFFT := NewMovingAverage(20)
	viaFFT.SetFFTThreshold(0)

	testutil.RequireSliceNearlyEqual(t, viaFFT.ProcessBuffer(in), direct.ProcessBuffer(in), 1e-9)
}

func TestMovingAverageKnownValues(t *testing.T) {
	ma := NewMovingAverage(1)
	assert.Equal(t, 3, ma.KernelLength())

	out := ma.ProcessBuffer([]float64{3, 0, 0, 6})
	testutil.RequireSliceNearlyEqual(t, out, []float64{2, 1, 2, 4}, 1e-12)
}

func TestMovingAverageZeroHalfWindowCopies(t *testing.T) {
	in := []float64{1, 2, 3}
	out := NewMovingAverage(0).ProcessBuffer(in)

	assert.Equal(t, in, out)
	out[0] = 99
	assert.Equal(t, 1.0, in[0])
}

func TestMovingAverageConstantLongKernel(t *testing.T) {
	in := testutil.Constant(12, 100)
	out := NewMovingAverage(40).ProcessBuffer(in)

	testutil.RequireSliceNearlyEqual(t, out, in, 1e-9)
}
