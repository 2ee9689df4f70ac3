package filters

import (
	"github.com/mjibson/go-dsp/dsputils"
	"github.com/mjibson/go-dsp/fft"

	"github.com/RyanBlaney/sonido-baseline/algorithms/common"
)

// DefaultFFTThreshold is the kernel length from which MovingAverage switches
// from direct summation to FFT convolution.
const DefaultFFTThreshold = 65

// MovingAverage is a uniform (boxcar) smoother of width 2*halfWindow+1 with
// edge padding. Long kernels are applied by FFT convolution through
// mjibson/go-dsp, short ones by direct summation; both paths agree to
// floating-point round-off.
type MovingAverage struct {
	halfWindow   int
	fftThreshold int
}

// NewMovingAverage creates a moving average with the given half window.
// A half window <= 0 makes ProcessBuffer an identity copy.
func NewMovingAverage(halfWindow int) *MovingAverage {
	return &MovingAverage{
		halfWindow:   halfWindow,
		fftThreshold: DefaultFFTThreshold,
	}
}

// SetFFTThreshold overrides the kernel length at which FFT convolution is used.
// A value <= 0 forces the FFT path for every kernel.
func (m *MovingAverage) SetFFTThreshold(kernelLength int) {
	m.fftThreshold = kernelLength
}

// KernelLength returns 2*halfWindow+1
func (m *MovingAverage) KernelLength() int {
	return 2*m.halfWindow + 1
}

// ProcessBuffer returns the smoothed copy of input
func (m *MovingAverage) ProcessBuffer(input []float64) []float64 {
	if m.halfWindow <= 0 || len(input) == 0 {
		out := make([]float64, len(input))
		copy(out, input)
		return out
	}

	padded := common.EdgePad(input, m.halfWindow)
	if m.KernelLength() >= m.fftThreshold {
		return m.convolveFFT(padded, len(input))
	}
	return m.convolveDirect(padded, len(input))
}

func (m *MovingAverage) convolveDirect(padded []float64, n int) []float64 {
	k := m.KernelLength()
	out := make([]float64, n)
	for i := range out {
		sum := 0.0
		for j := i; j < i+k; j++ {
			sum += padded[j]
		}
		out[i] = sum / float64(k)
	}
	return out
}

// convolveFFT performs linear convolution by zero padding both operands to a
// power of two at least len(padded)+k-1 long, then takes the fully
// overlapped part of the result.
func (m *MovingAverage) convolveFFT(padded []float64, n int) []float64 {
	k := m.KernelLength()
	size := common.NextPowerOfTwo(len(padded) + k - 1)

	x := make([]float64, size)
	copy(x, padded)
	kernel := make([]float64, size)
	for i := 0; i < k; i++ {
		kernel[i] = 1 / float64(k)
	}

	y := fft.Convolve(dsputils.ToComplex(x), dsputils.ToComplex(kernel))

	out := make([]float64, n)
	for i := range out {
		out[i] = real(y[i+k-1])
	}
	return out
}
