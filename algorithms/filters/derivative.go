package filters

import "github.com/RyanBlaney/sonido-baseline/algorithms/common"

// FirstDerivative computes the centred first difference
//
//	d[n] = (x[n+1] - x[n-1]) / 2
//
// with one sample of edge padding, so d has the same length as x and the
// derivative at either end is half the step to the inner neighbour.
func FirstDerivative(signal []float64) []float64 {
	d := make([]float64, len(signal))
	if len(signal) == 0 {
		return d
	}

	padded := common.EdgePad(signal, 1)
	for n := range d {
		d[n] = (padded[n+2] - padded[n]) / 2
	}
	return d
}

// SmoothedDerivative smooths signal with the default kernel and differentiates
// the result. This is the derivative used for zero-crossing peak search.
func SmoothedDerivative(signal []float64) []float64 {
	return FirstDerivative(Smooth(signal))
}
