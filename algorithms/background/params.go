// Package background estimates the slowly varying continuum under a count
// spectrum with adaptive (SASNIP) or fixed-window (SNIP) peak clipping.
package background

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/RyanBlaney/sonido-baseline/algorithms/peaks"
)

var (
	// ErrEmptySpectrum is returned for a zero-length spectrum.
	ErrEmptySpectrum = errors.New("background: empty spectrum")

	// ErrInvalidInput wraps rejected counts and out-of-range parameters.
	ErrInvalidInput = errors.New("background: invalid input")

	// ErrNotConverged is returned alongside a usable Result when the outer
	// loop hits its iteration cap or the convergence ratio is undefined.
	ErrNotConverged = errors.New("background: did not converge")
)

// WindowMode selects how clipping radii are assigned to channels
type WindowMode int

const (
	// WindowAdaptive clips each channel with radius t*FWHM from the peak locator
	WindowAdaptive WindowMode = iota
	// WindowFixed clips every channel with MaxHalfWindow in a single sweep
	WindowFixed
)

func (w WindowMode) String() string {
	switch w {
	case WindowAdaptive:
		return "adaptive"
	case WindowFixed:
		return "fixed"
	default:
		return fmt.Sprintf("WindowMode(%d)", int(w))
	}
}

// ParseWindowMode accepts "adaptive"/"sasnip" and "fixed"/"snip"
func ParseWindowMode(name string) (WindowMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "adaptive", "sasnip":
		return WindowAdaptive, nil
	case "fixed", "snip":
		return WindowFixed, nil
	}
	return WindowAdaptive, fmt.Errorf("%w: unknown window mode %q", ErrInvalidInput, name)
}

// InsideRule decides which FWHM values count as inside a peak region when
// the convergence test splits the candidate background into yin and yout.
type InsideRule int

const (
	// InsideExcludeUnit treats fwhm values other than 0 and 1 as inside
	InsideExcludeUnit InsideRule = iota
	// InsideNonZero treats every non-zero fwhm as inside
	InsideNonZero
)

// Inside reports whether a channel with the given FWHM lies inside a peak
func (r InsideRule) Inside(fwhm float64) bool {
	if r == InsideNonZero {
		return fwhm != 0
	}
	return fwhm != 0 && fwhm != 1
}

func (r InsideRule) String() string {
	if r == InsideNonZero {
		return "nonzero"
	}
	return "exclude-unit"
}

// ParseInsideRule accepts "exclude-unit" and "nonzero"
func ParseInsideRule(name string) (InsideRule, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "exclude-unit", "exclude_unit":
		return InsideExcludeUnit, nil
	case "nonzero", "non-zero", "non_zero":
		return InsideNonZero, nil
	}
	return InsideExcludeUnit, fmt.Errorf("%w: unknown inside-peak rule %q", ErrInvalidInput, name)
}

// Params configures one background estimation
type Params struct {
	T         float64 // FWHM to clipping radius multiplier
	Tolerance float64 // relative change of parameterB that ends the outer loop
	Decrease  bool    // sweep radius m..1 instead of 1..m
	Smooth    bool    // smooth the raw counts once before the transform

	Peaks peaks.Options

	Window        WindowMode
	MaxHalfWindow int // radius used by WindowFixed

	UseLLS           bool
	RecomputeFWHM    bool // re-run the peak locator on every candidate background
	ClipOutsidePeaks bool // also clip channels outside every peak with each radius
	InsidePeak       InsideRule

	MaxIterations       int
	PreSmoothHalfWindow int // moving-average half width applied to the counts before clipping, 0 disables
	SmoothHalfWindow    int // moving-average half width applied to the result, 0 disables
}

// DefaultParams returns the adaptive SASNIP defaults
func DefaultParams() Params {
	return Params{
		T:             1,
		Tolerance:     0.005,
		Decrease:      true,
		Smooth:        false,
		Peaks:         peaks.DefaultOptions(),
		Window:        WindowAdaptive,
		MaxHalfWindow: 10,
		UseLLS:        true,
		InsidePeak:    InsideExcludeUnit,
		MaxIterations: 100,
	}
}

// Validate checks parameter ranges. Errors wrap ErrInvalidInput.
func (p Params) Validate() error {
	var errs []error
	if p.T < 0 || math.IsNaN(p.T) || math.IsInf(p.T, 0) {
		errs = append(errs, fmt.Errorf("t must be finite and >= 0, got %v", p.T))
	}
	if p.Tolerance < 0 || math.IsNaN(p.Tolerance) {
		errs = append(errs, fmt.Errorf("tolerance must be >= 0, got %v", p.Tolerance))
	}
	if p.Peaks.Minimum < 0 {
		errs = append(errs, fmt.Errorf("peak minimum must be >= 0, got %d", p.Peaks.Minimum))
	}
	if p.Peaks.Maximum < 0 {
		errs = append(errs, fmt.Errorf("peak maximum must be >= 0, got %d", p.Peaks.Maximum))
	}
	if p.Window != WindowAdaptive && p.Window != WindowFixed {
		errs = append(errs, fmt.Errorf("unknown window mode %d", int(p.Window)))
	}
	if p.Window == WindowFixed && p.MaxHalfWindow < 1 {
		errs = append(errs, fmt.Errorf("max half window must be >= 1, got %d", p.MaxHalfWindow))
	}
	if p.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("max iterations must be >= 1, got %d", p.MaxIterations))
	}
	if s := p.Peaks.SettleFraction; s < 0 || s >= 1 || math.IsNaN(s) {
		errs = append(errs, fmt.Errorf("settle fraction must be in [0, 1), got %v", s))
	}
	if p.PreSmoothHalfWindow < 0 {
		errs = append(errs, fmt.Errorf("pre-smooth half window must be >= 0, got %d", p.PreSmoothHalfWindow))
	}
	if p.SmoothHalfWindow < 0 {
		errs = append(errs, fmt.Errorf("smooth half window must be >= 0, got %d", p.SmoothHalfWindow))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidInput, errors.Join(errs...))
}
