package filters

import (
	"fmt"

	"github.com/RyanBlaney/sonido-baseline/algorithms/common"
)

// DefaultSmoothingWeights is the 5-tap triangular kernel [1 2 3 2 1]/9 used
// for spectrum smoothing before derivative-based peak detection.
var DefaultSmoothingWeights = []float64{1, 2, 3, 2, 1}

// Smoother implements a symmetric weighted moving average (FIR low-pass).
//
// The filter computes
//
//	y[n] = (1/W) * Σ_k w[k] * x[n+k-h]
//
// where h = len(w)/2 and W = Σ w. Before filtering the input is edge padded
// by h samples on each side (the first and last sample repeated), so the
// output has the same length as the input and a constant input is returned
// unchanged.
//
// References:
//   - A. Savitzky, M.J.E. Golay, "Smoothing and Differentiation of Data by
//     Simplified Least Squares Procedures", Anal. Chem. 36 (1964) 1627
//   - G.F. Knoll, "Radiation Detection and Measurement", 4th ed., Chapter 18
//     (spectrum smoothing for peak search)
//
// A Smoother has no state between calls; ProcessBuffer may be called any
// number of times, from any goroutine.
type Smoother struct {
	weights []float64
	norm    float64
	half    int
}

// NewSmoother creates the default [1 2 3 2 1]/9 smoother
func NewSmoother() *Smoother {
	s, _ := NewWeightedSmoother(DefaultSmoothingWeights)
	return s
}

// NewWeightedSmoother creates a smoother with custom weights.
// The kernel must have odd length and a non-zero sum.
func NewWeightedSmoother(weights []float64) (*Smoother, error) {
	if len(weights) == 0 || len(weights)%2 == 0 {
		return nil, fmt.Errorf("smoothing kernel must have odd length, got %d", len(weights))
	}
	norm := common.Sum(weights)
	if norm == 0 {
		return nil, fmt.Errorf("smoothing kernel weights sum to zero")
	}

	w := make([]float64, len(weights))
	copy(w, weights)

	return &Smoother{
		weights: w,
		norm:    norm,
		half:    len(w) / 2,
	}, nil
}

// ProcessBuffer returns the smoothed copy of input. The input is not modified.
func (s *Smoother) ProcessBuffer(input []float64) []float64 {
	output := make([]float64, len(input))
	if len(input) == 0 {
		return output
	}

	padded := common.EdgePad(input, s.half)
	for n := range output {
		acc := 0.0
		for k, w := range s.weights {
			acc += w * padded[n+k]
		}
		output[n] = acc / s.norm
	}

	return output
}

// HalfWidth returns the number of samples the kernel reaches on each side
func (s *Smoother) HalfWidth() int {
	return s.half
}

// Smooth applies the default [1 2 3 2 1]/9 smoother to signal
func Smooth(signal []float64) []float64 {
	return defaultSmoother.ProcessBuffer(signal)
}

var defaultSmoother = NewSmoother()
