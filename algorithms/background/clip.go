package background

import (
	"math"

	"github.com/RyanBlaney/sonido-baseline/algorithms/common"
)

// clipWindow writes one SNIP pass with radius i from src into dst. A channel
// is clipped toward the mean of its neighbours at distance i when i fits in
// its radius (or, with outside set, when its radius is zero) and both
// neighbours exist; otherwise it is copied unchanged.
func clipWindow(src, dst, radius []float64, i int, outside bool) {
	n := len(src)
	w := float64(i)
	for c, v := range src {
		eligible := w <= radius[c] || (outside && radius[c] == 0)
		if eligible && c-i >= 0 && c+i < n {
			if avg := (src[c-i] + src[c+i]) / 2; avg < v {
				v = avg
			}
		}
		dst[c] = v
	}
}

// clipSweep runs clipWindow for every radius from m down to 1 (decrease) or
// from 1 up to m. Each pass reads the previous pass's output. work may be
// overwritten; the returned slice holds the final pass.
func clipSweep(work, radius []float64, m int, decrease, outside bool) []float64 {
	if m <= 0 {
		return work
	}

	cur := work
	next := make([]float64, len(work))
	for step := 0; step < m; step++ {
		i := step + 1
		if decrease {
			i = m - step
		}
		clipWindow(cur, next, radius, i, outside)
		cur, next = next, cur
	}
	return cur
}

// maxRadius is floor(max(radius)), 0 for an empty or peak-free map
func maxRadius(radius []float64) int {
	m := common.Max(radius)
	if m <= 0 {
		return 0
	}
	return int(math.Floor(m))
}

// convergence holds the outer-loop stability state
type convergence struct {
	previousB float64
	signalSum float64
	inside    InsideRule
	tolerance float64
}

func newConvergence(signalSum, tolerance float64, inside InsideRule) *convergence {
	return &convergence{
		previousB: 1,
		signalSum: signalSum,
		inside:    inside,
		tolerance: tolerance,
	}
}

// split sums the candidate background inside and outside peak regions
func (cv *convergence) split(candidate, fwhm []float64) (yin, yout float64) {
	for c, v := range candidate {
		if cv.inside.Inside(fwhm[c]) {
			yin += v
		} else {
			yout += v
		}
	}
	return yin, yout
}

// step computes parameterB for candidate and reports whether its relative
// change from the previous value is within tolerance. ok is false when the
// ratio is undefined because previousB is zero or not finite.
func (cv *convergence) step(candidate, fwhm []float64) (parameterB, change float64, done, ok bool) {
	yin, yout := cv.split(candidate, fwhm)
	omega := (yin + yout) / cv.signalSum
	parameterB = yin*omega + yout*(1-omega)

	prev := cv.previousB
	cv.previousB = parameterB
	if prev == 0 || math.IsNaN(prev) || math.IsInf(prev, 0) {
		return parameterB, math.Inf(1), false, false
	}

	change = math.Abs(parameterB-prev) / math.Abs(prev)
	return parameterB, change, change <= cv.tolerance, true
}
