package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/RyanBlaney/sonido-baseline/algorithms/background"
	"github.com/RyanBlaney/sonido-baseline/algorithms/common"
	"github.com/RyanBlaney/sonido-baseline/algorithms/peaks"
	"github.com/RyanBlaney/sonido-baseline/analysis/config"
	"github.com/RyanBlaney/sonido-baseline/logging"
)

// Result is a background-subtracted spectrum
type Result struct {
	Name       string       `json:"name,omitempty"`
	Spectrum   []float64    `json:"counts"`
	Background []float64    `json:"background"`
	Foreground []float64    `json:"foreground"`
	FWHM       []float64    `json:"fwhm"`
	Peaks      []peaks.Peak `json:"peaks"`
	Iterations int          `json:"iterations"`
	Converged  bool         `json:"converged"`
	ParameterB float64      `json:"parameter_b"`
	Summary    Summary      `json:"summary"`

	Config *config.BackgroundConfig `json:"config"`
}

// Summary condenses a result into a few numbers
type Summary struct {
	Channels         int     `json:"channels"`
	TotalCounts      float64 `json:"total_counts"`
	BackgroundCounts float64 `json:"background_counts"`
	ForegroundCounts float64 `json:"foreground_counts"`
	PeakChannels     int     `json:"peak_channels"`

	// foreground statistics over channels outside every detected peak,
	// a quick check that the background follows the continuum
	ResidualMean   float64 `json:"residual_mean"`
	ResidualStdDev float64 `json:"residual_std_dev"`
}

// Analyzer runs background estimation and derives foreground and summaries
type Analyzer struct {
	config    *config.BackgroundConfig
	estimator *background.Estimator
	logger    logging.Logger
}

// NewAnalyzer creates an analyzer. A nil config selects the SASNIP defaults.
func NewAnalyzer(cfg *config.BackgroundConfig) (*Analyzer, error) {
	if cfg == nil {
		cfg = config.DefaultBackgroundConfig()
	}

	params, err := cfg.ToParams()
	if err != nil {
		return nil, fmt.Errorf("invalid background config: %w", err)
	}

	est, err := background.NewEstimator(params)
	if err != nil {
		return nil, err
	}

	logger := logging.WithFields(logging.Fields{
		"component": "spectrum_analyzer",
		"method":    string(cfg.Method),
	})

	return &Analyzer{
		config:    cfg,
		estimator: est,
		logger:    logger,
	}, nil
}

// Config returns the analyzer's configuration
func (a *Analyzer) Config() *config.BackgroundConfig {
	return a.config
}

// Analyze estimates the background of counts.
//
// A run that stops without converging still yields a complete Result; the
// returned error then wraps background.ErrNotConverged.
func (a *Analyzer) Analyze(ctx context.Context, name string, counts []float64) (*Result, error) {
	logger := a.logger.WithContext(ctx).WithFields(logging.Fields{
		"spectrum": name,
		"channels": len(counts),
	})

	est, err := a.estimator.EstimateContext(ctx, counts)
	if est == nil {
		logger.Error(err, "background estimation failed")
		return nil, fmt.Errorf("failed to estimate background of %q: %w", name, err)
	}

	res, buildErr := a.buildResult(name, counts, est)
	if buildErr != nil {
		return nil, buildErr
	}

	logOutcome(logger, res, err)
	return res, err
}

// logOutcome records how one estimation ended
func logOutcome(logger logging.Logger, res *Result, err error) {
	switch {
	case err == nil:
		logger.Info("background estimated", logging.Fields{
			"iterations": res.Iterations,
			"peaks":      len(res.Peaks),
			"foreground": res.Summary.ForegroundCounts,
		})
	case errors.Is(err, background.ErrNotConverged):
		logger.Warn("background did not converge, using last candidate", logging.Fields{
			"iterations":  res.Iterations,
			"parameter_b": res.ParameterB,
		})
	default:
		logger.Warn("background estimation interrupted", logging.Fields{
			"iterations": res.Iterations,
			"error":      err.Error(),
		})
	}
}

func (a *Analyzer) buildResult(name string, counts []float64, est *background.Result) (*Result, error) {
	foreground, err := est.Foreground(counts)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Name:       name,
		Spectrum:   append([]float64(nil), counts...),
		Background: est.Background,
		Foreground: foreground,
		FWHM:       est.FWHM,
		Peaks:      est.Peaks,
		Iterations: est.Iterations,
		Converged:  est.Converged,
		ParameterB: est.ParameterB,
		Config:     a.config,
	}
	res.Summary = summarize(res)
	return res, nil
}

func summarize(res *Result) Summary {
	s := Summary{
		Channels:         len(res.Spectrum),
		TotalCounts:      common.Sum(res.Spectrum),
		BackgroundCounts: common.Sum(res.Background),
		ForegroundCounts: common.Sum(res.Foreground),
	}

	residual := make([]float64, 0, len(res.Foreground))
	for c, w := range res.FWHM {
		if w != 0 {
			s.PeakChannels++
			continue
		}
		residual = append(residual, res.Foreground[c])
	}
	s.ResidualMean = common.Mean(residual)
	s.ResidualStdDev = common.StandardDeviation(residual)

	return s
}

// Input is one named spectrum of a batch
type Input struct {
	Name   string
	Counts []float64
}

// AnalyzeBatch analyzes independent spectra on up to workers goroutines.
// results[i] and errs[i] follow the same rules as Analyze for inputs[i].
func (a *Analyzer) AnalyzeBatch(ctx context.Context, inputs []Input, workers int) (results []*Result, errs []error) {
	spectra := make([][]float64, len(inputs))
	for i, in := range inputs {
		spectra[i] = in.Counts
	}

	batchLogger := a.logger.WithContext(ctx)
	results = make([]*Result, len(inputs))
	errs = make([]error, len(inputs))
	for i, br := range a.estimator.EstimateBatch(ctx, spectra, workers) {
		logger := batchLogger.WithFields(logging.Fields{
			"spectrum": inputs[i].Name,
			"channels": len(inputs[i].Counts),
		})
		if br.Result == nil {
			logger.Error(br.Err, "background estimation failed")
			errs[i] = fmt.Errorf("failed to estimate background of %q: %w", inputs[i].Name, br.Err)
			continue
		}
		res, err := a.buildResult(inputs[i].Name, inputs[i].Counts, br.Result)
		if err != nil {
			errs[i] = err
			continue
		}
		logOutcome(logger, res, br.Err)
		results[i], errs[i] = res, br.Err
	}
	return results, errs
}
