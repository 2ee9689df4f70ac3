package common

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Basic numeric helpers shared by the spectrum algorithms, backed by gonum

// Sum returns the sum of all elements (0 for an empty slice)
func Sum(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return floats.Sum(data)
}

// Max returns the largest element, or 0 for an empty slice
func Max(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return floats.Max(data)
}

// ArgMax returns the index of the first maximum, or -1 for an empty slice
func ArgMax(data []float64) int {
	if len(data) == 0 {
		return -1
	}
	return floats.MaxIdx(data)
}

// ArgMin returns the index of the first minimum, or -1 for an empty slice
func ArgMin(data []float64) int {
	if len(data) == 0 {
		return -1
	}
	return floats.MinIdx(data)
}

// Scaled returns c*data in a new slice
func Scaled(c float64, data []float64) []float64 {
	out := make([]float64, len(data))
	floats.ScaleTo(out, c, data)
	return out
}

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// StandardDeviation calculates the sample standard deviation
func StandardDeviation(data []float64) float64 {
	if len(data) < 2 {
		return 0.0
	}
	return stat.StdDev(data, nil)
}

// EdgePad returns data with width copies of the first sample prepended and
// width copies of the last sample appended.
func EdgePad(data []float64, width int) []float64 {
	if len(data) == 0 || width <= 0 {
		out := make([]float64, len(data))
		copy(out, data)
		return out
	}

	padded := make([]float64, len(data)+2*width)
	first, last := data[0], data[len(data)-1]
	for i := 0; i < width; i++ {
		padded[i] = first
		padded[width+len(data)+i] = last
	}
	copy(padded[width:], data)
	return padded
}

// ClampIndex constrains an index to [0, n)
func ClampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// IsNonNegative reports whether every element is a finite value >= 0.
// It returns the index of the first offending element otherwise.
func IsNonNegative(data []float64) (bool, int) {
	for i, v := range data {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return false, i
		}
	}
	return true, -1
}

// NextPowerOfTwo finds the next power of 2 >= n
func NextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}

	power := 1
	for power < n {
		power <<= 1
	}
	return power
}
