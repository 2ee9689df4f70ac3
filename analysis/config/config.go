package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/RyanBlaney/sonido-baseline/algorithms/background"
	"github.com/RyanBlaney/sonido-baseline/algorithms/peaks"
)

type Method string

const (
	MethodSASNIP Method = "sasnip"
	MethodSNIP   Method = "snip"
)

// BackgroundConfig holds every tunable of a background estimation
type BackgroundConfig struct {
	Method Method `json:"method"` // "sasnip" (adaptive) or "snip" (fixed window)

	// Clipping
	T         float64 `json:"t"`
	Tolerance float64 `json:"tolerance"`
	Decrease  bool    `json:"decrease"`
	Smooth    bool    `json:"smooth"`
	UseLLS    bool    `json:"use_lls"`

	// Peak search
	PeakMinimum         int     `json:"peak_minimum"`
	PeakMaximum         int     `json:"peak_maximum"`
	DerivativeThreshold float64 `json:"derivative_threshold"`
	PlateauMinima       bool    `json:"plateau_minima"`
	SettleFraction      float64 `json:"settle_fraction"`

	// Loop control
	MaxIterations    int    `json:"max_iterations"`
	RecomputeFWHM    bool   `json:"recompute_fwhm"`
	ClipOutsidePeaks bool   `json:"clip_outside_peaks"`
	InsidePeak       string `json:"inside_peak"` // "exclude-unit" or "nonzero"

	// Fixed-window SNIP
	MaxHalfWindow int `json:"max_half_window"`

	// Moving-average smoothing of the counts before clipping and of the result
	PreSmoothHalfWindow int `json:"pre_smooth_half_window"`
	SmoothHalfWindow    int `json:"smooth_half_window,omitempty"`
}

// DefaultBackgroundConfig returns the adaptive SASNIP defaults
func DefaultBackgroundConfig() *BackgroundConfig {
	return &BackgroundConfig{
		Method:              MethodSASNIP,
		T:                   1,
		Tolerance:           0.005,
		Decrease:            true,
		Smooth:              false,
		UseLLS:              true,
		PeakMinimum:         4,
		PeakMaximum:         100,
		DerivativeThreshold: 0,
		SettleFraction:      peaks.DefaultSettleFraction,
		MaxIterations:       100,
		InsidePeak:          "exclude-unit",
		MaxHalfWindow:       10,
	}
}

// DefaultSNIPConfig returns classic fixed-window SNIP on LLS-transformed
// counts smoothed with a half window of 3
func DefaultSNIPConfig() *BackgroundConfig {
	cfg := DefaultBackgroundConfig()
	cfg.Method = MethodSNIP
	cfg.MaxHalfWindow = 20
	cfg.PreSmoothHalfWindow = 3
	cfg.SmoothHalfWindow = 0
	return cfg
}

// ConfigForMethod returns the preset for method, falling back to SASNIP
func ConfigForMethod(method Method) *BackgroundConfig {
	switch Method(strings.ToLower(string(method))) {
	case MethodSNIP:
		return DefaultSNIPConfig()
	default:
		return DefaultBackgroundConfig()
	}
}

// Validate reports every out-of-range field at once
func (c *BackgroundConfig) Validate() error {
	var errs []error

	if _, err := background.ParseWindowMode(string(c.Method)); err != nil {
		errs = append(errs, fmt.Errorf("method: %q is not sasnip or snip", c.Method))
	}
	if c.T < 0 || math.IsNaN(c.T) || math.IsInf(c.T, 0) {
		errs = append(errs, fmt.Errorf("t: must be finite and >= 0, got %v", c.T))
	}
	if c.Tolerance < 0 || math.IsNaN(c.Tolerance) {
		errs = append(errs, fmt.Errorf("tolerance: must be >= 0, got %v", c.Tolerance))
	}
	if c.PeakMinimum < 0 {
		errs = append(errs, fmt.Errorf("peak_minimum: must be >= 0, got %d", c.PeakMinimum))
	}
	if c.PeakMaximum < 0 {
		errs = append(errs, fmt.Errorf("peak_maximum: must be >= 0, got %d", c.PeakMaximum))
	}
	if c.PeakMaximum > 0 && c.PeakMinimum >= c.PeakMaximum {
		errs = append(errs, fmt.Errorf("peak_minimum (%d) must be below peak_maximum (%d)", c.PeakMinimum, c.PeakMaximum))
	}
	if c.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("max_iterations: must be >= 1, got %d", c.MaxIterations))
	}
	if _, err := background.ParseInsideRule(c.InsidePeak); err != nil {
		errs = append(errs, fmt.Errorf("inside_peak: %q is not exclude-unit or nonzero", c.InsidePeak))
	}
	if c.Method == MethodSNIP && c.MaxHalfWindow < 1 {
		errs = append(errs, fmt.Errorf("max_half_window: must be >= 1, got %d", c.MaxHalfWindow))
	}
	if c.SettleFraction < 0 || c.SettleFraction >= 1 || math.IsNaN(c.SettleFraction) {
		errs = append(errs, fmt.Errorf("settle_fraction: must be in [0, 1), got %v", c.SettleFraction))
	}
	if c.PreSmoothHalfWindow < 0 {
		errs = append(errs, fmt.Errorf("pre_smooth_half_window: must be >= 0, got %d", c.PreSmoothHalfWindow))
	}
	if c.SmoothHalfWindow < 0 {
		errs = append(errs, fmt.Errorf("smooth_half_window: must be >= 0, got %d", c.SmoothHalfWindow))
	}

	return errors.Join(errs...)
}

// ToParams converts the configuration into estimator parameters
func (c *BackgroundConfig) ToParams() (background.Params, error) {
	if err := c.Validate(); err != nil {
		return background.Params{}, err
	}

	window, _ := background.ParseWindowMode(string(c.Method))
	inside, _ := background.ParseInsideRule(c.InsidePeak)

	return background.Params{
		T:         c.T,
		Tolerance: c.Tolerance,
		Decrease:  c.Decrease,
		Smooth:    c.Smooth,
		Peaks: peaks.Options{
			Minimum:             c.PeakMinimum,
			Maximum:             c.PeakMaximum,
			DerivativeThreshold: c.DerivativeThreshold,
			PlateauMinima:       c.PlateauMinima,
			SettleFraction:      c.SettleFraction,
		},
		Window:              window,
		MaxHalfWindow:       c.MaxHalfWindow,
		UseLLS:              c.UseLLS,
		RecomputeFWHM:       c.RecomputeFWHM,
		ClipOutsidePeaks:    c.ClipOutsidePeaks,
		InsidePeak:          inside,
		MaxIterations:       c.MaxIterations,
		PreSmoothHalfWindow: c.PreSmoothHalfWindow,
		SmoothHalfWindow:    c.SmoothHalfWindow,
	}, nil
}

// Decode reads JSON from r over the defaults of the method named in the
// document, so omitted fields keep their preset values.
func Decode(r io.Reader) (*BackgroundConfig, error) {
	return DecodeFor(r, "")
}

// DecodeFor is Decode with the method chosen by the caller. A non-empty
// method selects the preset under the document and overrides the
// document's own method.
func DecodeFor(r io.Reader, method Method) (*BackgroundConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var head struct {
		Method Method `json:"method"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	forced := method != ""
	if !forced {
		method = head.Method
	}

	cfg := ConfigForMethod(method)
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if forced {
		cfg.Method = Method(strings.ToLower(string(method)))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFile reads a JSON configuration file
func LoadFile(path string) (*BackgroundConfig, error) {
	return LoadFileFor(path, "")
}

// LoadFileFor reads a JSON configuration file with DecodeFor
func LoadFileFor(path string, method Method) (*BackgroundConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	cfg, err := DecodeFor(f, method)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
