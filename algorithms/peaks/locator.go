package peaks

import (
	"math"

	"github.com/RyanBlaney/sonido-baseline/algorithms/common"
	"github.com/RyanBlaney/sonido-baseline/algorithms/filters"
)

// gaussianHalfWidth converts the distance between a Gaussian's centre and its
// steepest slope (one sigma) into the half width at half maximum.
var gaussianHalfWidth = math.Sqrt(2 * math.Ln2)

// Options configures zero-crossing peak search
type Options struct {
	// Minimum accepted base width (left+right offsets) in channels.
	// Candidates with left+right <= Minimum are treated as noise.
	Minimum int `json:"peak_minimum"`

	// Maximum base width in channels. Each side is searched up to Maximum/2
	// channels away from the maximum crossing.
	Maximum int `json:"peak_maximum"`

	// DerivativeThreshold is the slope both flanks must exceed in magnitude.
	DerivativeThreshold float64 `json:"derivative_threshold"`

	// PlateauMinima also marks a derivative step from exactly zero to positive
	// as a minimum crossing.
	PlateauMinima bool `json:"plateau_minima"`

	// SettleFraction ends a flank where the derivative has decayed to this
	// fraction of the steepest slope seen on that flank, even without a sign
	// change. A peak on a flat baseline is bounded this way. 0 disables it.
	SettleFraction float64 `json:"settle_fraction"`
}

// DefaultSettleFraction is the flank settle level used by DefaultOptions
const DefaultSettleFraction = 0.01

// DefaultOptions returns peakMinimum=4, peakMaximum=100, derivativeThreshold=0
// with flank settling enabled
func DefaultOptions() Options {
	return Options{
		Minimum:             4,
		Maximum:             100,
		DerivativeThreshold: 0,
		SettleFraction:      DefaultSettleFraction,
	}
}

// Peak is one accepted candidate
type Peak struct {
	Center         int `json:"center"`           // last channel of the rising half (i)
	Left           int `json:"left"`             // channel of the left minimum crossing
	Right          int `json:"right"`            // channel of the right minimum crossing
	LeftHalfWidth  int `json:"left_half_width"`  // channels from the rising-flank extremum to Center, Gaussian corrected
	RightHalfWidth int `json:"right_half_width"` // channels from Center+1 to the falling-flank extremum, Gaussian corrected
	FWHM           int `json:"fwhm"`             // LeftHalfWidth + RightHalfWidth
}

// Locator finds peaks from sign changes of the smoothed first derivative and
// produces a per-channel FWHM map.
type Locator struct {
	opts     Options
	smoother *filters.Smoother
}

// NewLocator creates a peak locator
func NewLocator(opts Options) *Locator {
	return &Locator{
		opts:     opts,
		smoother: filters.NewSmoother(),
	}
}

// Options returns the locator's configuration
func (l *Locator) Options() Options {
	return l.opts
}

// FindPeaks returns the FWHM map of signal: for every channel inside an
// accepted peak the estimated FWHM, zero elsewhere.
func (l *Locator) FindPeaks(signal []float64) []float64 {
	fwhm, _ := l.Detect(signal)
	return fwhm
}

// Detect returns the FWHM map together with the accepted peaks in channel order.
func (l *Locator) Detect(signal []float64) ([]float64, []Peak) {
	n := len(signal)
	fwhm := make([]float64, n)
	if n < 2 {
		return fwhm, nil
	}

	d := filters.FirstDerivative(l.smoother.ProcessBuffer(signal))
	crossings := ClassifyCrossings(d, l.opts.PlateauMinima)

	var found []Peak
	reach := l.opts.Maximum / 2

	for i := 0; i < n-1; i++ {
		if crossings[i] != CrossingMaximum || crossings[i+1] != CrossingMaximum {
			continue
		}

		left, right := l.searchBoundaries(crossings, d, i, reach)
		if left == 0 || right == 0 {
			continue
		}

		if left+right <= l.opts.Minimum {
			// noise: clear its markers so it cannot bound a later candidate
			lo := common.ClampIndex(i-left, n)
			hi := common.ClampIndex(i+1+right, n)
			for k := lo; k <= hi; k++ {
				crossings[k] = CrossingNone
			}
			continue
		}

		rising := d[i-left : i]
		falling := d[i+1 : i+1+right]
		if common.Max(rising) <= l.opts.DerivativeThreshold ||
			-minOf(falling) <= l.opts.DerivativeThreshold {
			continue
		}

		leftHalf := int(float64(left-common.ArgMax(rising)) * gaussianHalfWidth)
		rightHalf := int(float64(common.ArgMin(falling)) * gaussianHalfWidth)
		width := float64(leftHalf + rightHalf)

		for k := common.ClampIndex(i-leftHalf, n); k <= i; k++ {
			fwhm[k] = width
		}
		for k := i + 1; k <= common.ClampIndex(i+1+rightHalf, n); k++ {
			fwhm[k] = width
		}

		found = append(found, Peak{
			Center:         i,
			Left:           i - left,
			Right:          i + 1 + right,
			LeftHalfWidth:  leftHalf,
			RightHalfWidth: rightHalf,
			FWHM:           leftHalf + rightHalf,
		})
	}

	return fwhm, found
}

// searchBoundaries looks outward from the maximum crossing pair (i, i+1) for
// the nearest flank end on each side, at most reach channels away. A flank
// ends at a minimum crossing or, with SettleFraction set, where it settles.
// A zero offset means no boundary was found on that side.
func (l *Locator) searchBoundaries(crossings []Crossing, d []float64, i, reach int) (left, right int) {
	n := len(crossings)
	leftFlank := flank{settle: l.opts.SettleFraction, steepest: math.Abs(d[i])}
	rightFlank := flank{settle: l.opts.SettleFraction, steepest: math.Abs(d[i+1])}

	for j := 1; j <= reach; j++ {
		if k := i - j; left == 0 && k >= 0 && leftFlank.ends(crossings[k], d[k]) {
			left = j
		}
		if k := i + 1 + j; right == 0 && k < n && rightFlank.ends(crossings[k], d[k]) {
			right = j
		}
		if left != 0 && right != 0 {
			break
		}
	}
	return left, right
}

// flank tracks the steepest slope met while walking away from a maximum
type flank struct {
	settle   float64
	steepest float64
}

// ends reports whether the channel with crossing c and derivative v closes
// the flank. Settling only counts once the slope has stopped growing.
func (f *flank) ends(c Crossing, v float64) bool {
	if c == CrossingMinimum {
		return true
	}
	if f.settle <= 0 {
		return false
	}
	slope := math.Abs(v)
	if slope > f.steepest {
		f.steepest = slope
		return false
	}
	return slope <= f.settle*f.steepest
}

func minOf(data []float64) float64 {
	return data[common.ArgMin(data)]
}

// FindPeaks is a convenience wrapper around NewLocator(...).FindPeaks with
// DefaultOptions overridden by the given arguments
func FindPeaks(signal []float64, peakMinimum, peakMaximum int, derivativeThreshold float64) []float64 {
	opts := DefaultOptions()
	opts.Minimum = peakMinimum
	opts.Maximum = peakMaximum
	opts.DerivativeThreshold = derivativeThreshold
	return NewLocator(opts).FindPeaks(signal)
}
