package background

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/RyanBlaney/sonido-baseline/algorithms/common"
	"github.com/RyanBlaney/sonido-baseline/algorithms/filters"
	"github.com/RyanBlaney/sonido-baseline/algorithms/peaks"
	"github.com/RyanBlaney/sonido-baseline/algorithms/transform"
	"github.com/RyanBlaney/sonido-baseline/logging"
)

// Result is the outcome of one estimation
type Result struct {
	Background []float64    `json:"background"`
	FWHM       []float64    `json:"fwhm"`  // map used by the last outer iteration
	Peaks      []peaks.Peak `json:"peaks"` // peaks behind that map
	Iterations int          `json:"iterations"`
	Converged  bool         `json:"converged"`
	ParameterB float64      `json:"parameter_b"`
	History    []float64    `json:"history"` // parameterB per outer iteration
}

// Foreground returns signal minus background channel by channel
func (r *Result) Foreground(signal []float64) ([]float64, error) {
	if len(signal) != len(r.Background) {
		return nil, fmt.Errorf("%w: signal has %d channels, background %d",
			ErrInvalidInput, len(signal), len(r.Background))
	}
	out := make([]float64, len(signal))
	floats.SubTo(out, signal, r.Background)
	return out, nil
}

// Estimator runs background estimation with a fixed parameter set. It holds
// no state between calls and is safe for concurrent use.
type Estimator struct {
	params  Params
	locator *peaks.Locator
	pre     *filters.MovingAverage
	post    *filters.MovingAverage
	logger  logging.Logger
}

// NewEstimator validates params and creates an estimator
func NewEstimator(params Params) (*Estimator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	logger := logging.WithFields(logging.Fields{
		"component": "background_estimator",
		"window":    params.Window.String(),
	})

	return &Estimator{
		params:  params,
		locator: peaks.NewLocator(params.Peaks),
		pre:     filters.NewMovingAverage(params.PreSmoothHalfWindow),
		post:    filters.NewMovingAverage(params.SmoothHalfWindow),
		logger:  logger,
	}, nil
}

// Params returns the estimator's configuration
func (e *Estimator) Params() Params {
	return e.params
}

// Estimate runs EstimateContext without cancellation
func (e *Estimator) Estimate(signal []float64) (*Result, error) {
	return e.EstimateContext(context.Background(), signal)
}

// EstimateContext estimates the background of signal.
//
// When the outer loop stops without meeting the tolerance the returned
// Result carries the last candidate background with Converged == false and
// the error wraps ErrNotConverged. Cancellation is checked between outer
// iterations; once at least one candidate exists it is returned together
// with the context error.
func (e *Estimator) EstimateContext(ctx context.Context, signal []float64) (*Result, error) {
	if len(signal) == 0 {
		return nil, ErrEmptySpectrum
	}

	counts, err := transform.Identity{}.Forward(signal)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fwhm, found := e.locator.Detect(counts)
	radius := e.radii(fwhm)
	m := maxRadius(radius)

	signalSum := common.Sum(counts)
	if signalSum == 0 {
		e.logger.Debug("all-zero spectrum, background is zero")
		return &Result{
			Background: make([]float64, len(counts)),
			FWHM:       fwhm,
			Peaks:      found,
			Iterations: 1,
			Converged:  true,
			History:    []float64{0},
		}, nil
	}

	working := counts
	if e.params.Smooth {
		working = filters.Smooth(counts)
	}
	if e.params.PreSmoothHalfWindow > 0 {
		working = e.pre.ProcessBuffer(working)
	}

	tr := transform.For(e.params.UseLLS)
	buf, err := tr.Forward(working)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	logger := e.logger.WithContext(ctx)
	cv := newConvergence(signalSum, e.params.Tolerance, e.params.InsidePeak)
	res := &Result{}

	for it := 1; it <= e.params.MaxIterations; it++ {
		if it > 1 {
			if err := ctx.Err(); err != nil {
				return e.finish(res), err
			}
		}

		buf = clipSweep(buf, radius, m, e.params.Decrease, e.params.ClipOutsidePeaks)
		candidate := tr.Inverse(buf)

		parameterB, change, done, ok := cv.step(candidate, fwhm)
		res.Background = candidate
		res.FWHM = fwhm
		res.Peaks = found
		res.Iterations = it
		res.ParameterB = parameterB
		res.History = append(res.History, parameterB)

		logger.Debug("outer iteration", logging.Fields{
			"iteration":   it,
			"max_radius":  m,
			"parameter_b": parameterB,
			"change":      change,
			"peaks":       len(found),
		})

		if !ok {
			logger.Warn("convergence ratio undefined, previous parameterB is zero", logging.Fields{
				"iteration": it,
			})
			return e.finish(res), fmt.Errorf("%w: previous parameterB is zero at iteration %d", ErrNotConverged, it)
		}

		// a fixed window runs one sweep; without radii nothing can change
		if done || e.params.Window == WindowFixed || (m == 0 && !e.params.RecomputeFWHM) {
			res.Converged = true
			return e.finish(res), nil
		}

		if e.params.RecomputeFWHM {
			fwhm, found = e.locator.Detect(candidate)
			radius = e.radii(fwhm)
			m = maxRadius(radius)
		}

		buf, err = tr.Forward(candidate)
		if err != nil {
			return e.finish(res), fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
	}

	logger.Warn("iteration cap reached", logging.Fields{
		"iterations":  res.Iterations,
		"parameter_b": res.ParameterB,
		"tolerance":   e.params.Tolerance,
	})
	return e.finish(res), fmt.Errorf("%w after %d iterations", ErrNotConverged, res.Iterations)
}

// radii maps the FWHM map to per-channel clipping radii
func (e *Estimator) radii(fwhm []float64) []float64 {
	if e.params.Window == WindowFixed {
		radius := make([]float64, len(fwhm))
		for c := range radius {
			radius[c] = float64(e.params.MaxHalfWindow)
		}
		return radius
	}
	return common.Scaled(e.params.T, fwhm)
}

// finish applies optional post-smoothing to the result's background
func (e *Estimator) finish(res *Result) *Result {
	if e.params.SmoothHalfWindow > 0 && len(res.Background) > 0 {
		res.Background = e.post.ProcessBuffer(res.Background)
	}
	return res
}

// SASNIP estimates the background of signal with adaptive clipping and the
// LLS transform. It is a convenience wrapper around NewEstimator with
// DefaultParams overridden by the given arguments.
func SASNIP(signal []float64, t, tolerance float64, decrease bool, peakMinimum, peakMaximum int, derivativeThreshold float64, smooth bool) (*Result, error) {
	params := DefaultParams()
	params.T = t
	params.Tolerance = tolerance
	params.Decrease = decrease
	params.Peaks.Minimum = peakMinimum
	params.Peaks.Maximum = peakMaximum
	params.Peaks.DerivativeThreshold = derivativeThreshold
	params.Smooth = smooth

	est, err := NewEstimator(params)
	if err != nil {
		return nil, err
	}
	return est.Estimate(signal)
}
