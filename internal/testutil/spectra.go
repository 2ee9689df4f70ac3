package testutil

import "math"

// Constant generates a flat spectrum.
func Constant(value float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = value
	}
	return out
}

// Ramp generates start, start+step, ... (length values).
func Ramp(start, step float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

// Gaussian adds a Gaussian peak of the given height, centre and sigma onto dst in place
// and returns dst.
func Gaussian(dst []float64, height, center, sigma float64) []float64 {
	for i := range dst {
		x := float64(i) - center
		dst[i] += height * math.Exp(-x*x/(2*sigma*sigma))
	}
	return dst
}

// GaussianOnBaseline returns a flat baseline with one Gaussian peak.
func GaussianOnBaseline(length int, baseline, height, center, sigma float64) []float64 {
	return Gaussian(Constant(baseline, length), height, center, sigma)
}

// Parabola generates base + curvature*(i-vertex)^2.
func Parabola(length int, base, curvature, vertex float64) []float64 {
	out := make([]float64, length)
	for i := range out {
		x := float64(i) - vertex
		out[i] = base + curvature*x*x
	}
	return out
}

// DeterministicNoise adds uniform noise in [-amplitude/2, amplitude/2) onto dst in place.
// A glibc-style LCG keeps the sequence identical across Go releases.
func DeterministicNoise(dst []float64, seed uint32, amplitude float64) []float64 {
	state := uint64(seed)
	for i := range dst {
		state = (state*1103515245 + 12345) % (1 << 31)
		dst[i] += (float64(state)/float64(1<<31) - 0.5) * amplitude
	}
	return dst
}
