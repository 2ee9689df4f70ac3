package analysis

import (
	"errors"
	"fmt"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
)

// ErrRange is returned for a channel interval outside the spectrum
var ErrRange = errors.New("analysis: channel range out of bounds")

// Counts sums the channels in [from, to) of the foreground, or of the raw
// counts when foreground is false.
func (r *Result) Counts(from, to int, foreground bool) (float64, error) {
	if err := r.checkRange(from, to); err != nil {
		return 0, err
	}
	return floats.Sum(r.series(foreground)[from:to]), nil
}

// RegionStats describes one series over a channel interval
type RegionStats struct {
	Sum    float64 `json:"sum"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Max    float64 `json:"max"`
}

// Region describes a channel interval [From, To)
type Region struct {
	From       int         `json:"from"`
	To         int         `json:"to"`
	Counts     RegionStats `json:"counts"`
	Foreground RegionStats `json:"foreground"`
	Background RegionStats `json:"background"`
}

// Region computes statistics of counts, foreground and background over
// [from, to). The interval must hold at least one channel.
func (r *Result) Region(from, to int) (*Region, error) {
	if err := r.checkRange(from, to); err != nil {
		return nil, err
	}
	if to == from {
		return nil, fmt.Errorf("%w: empty range [%d, %d)", ErrRange, from, to)
	}

	region := &Region{From: from, To: to}
	var err error
	if region.Counts, err = describe(r.Spectrum[from:to]); err != nil {
		return nil, fmt.Errorf("counts: %w", err)
	}
	if region.Foreground, err = describe(r.Foreground[from:to]); err != nil {
		return nil, fmt.Errorf("foreground: %w", err)
	}
	if region.Background, err = describe(r.Background[from:to]); err != nil {
		return nil, fmt.Errorf("background: %w", err)
	}
	return region, nil
}

func describe(data stats.Float64Data) (RegionStats, error) {
	var rs RegionStats
	var err error

	if rs.Sum, err = data.Sum(); err != nil {
		return rs, err
	}
	if rs.Mean, err = data.Mean(); err != nil {
		return rs, err
	}
	if rs.StdDev, err = data.StandardDeviation(); err != nil {
		return rs, err
	}
	if rs.Max, err = data.Max(); err != nil {
		return rs, err
	}
	return rs, nil
}

func (r *Result) series(foreground bool) []float64 {
	if foreground {
		return r.Foreground
	}
	return r.Spectrum
}

func (r *Result) checkRange(from, to int) error {
	if from < 0 || to > len(r.Spectrum) || from > to {
		return fmt.Errorf("%w: [%d, %d) with %d channels", ErrRange, from, to, len(r.Spectrum))
	}
	return nil
}
