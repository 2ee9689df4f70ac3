// Package render draws a spectrum with its estimated background and
// foreground using gonum/plot.
package render

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/RyanBlaney/sonido-baseline/algorithms/common"
	"github.com/RyanBlaney/sonido-baseline/analysis"
)

// ErrNothingToPlot is returned for a result without channels
var ErrNothingToPlot = errors.New("render: empty result")

// Options controls the chart
type Options struct {
	Title  string
	Width  vg.Length
	Height vg.Length

	// Counting range [From, To) shaded on the chart; ignored when To <= From
	From, To int

	HideForeground bool
}

// DefaultOptions returns a wide landscape chart without a shaded range
func DefaultOptions() Options {
	return Options{
		Width:  21 * vg.Inch,
		Height: 6 * vg.Inch,
	}
}

var spanColor = color.NRGBA{R: 255, G: 165, B: 0, A: 96}

// Build assembles the chart for res
func Build(res *analysis.Result, opts Options) (*plot.Plot, error) {
	n := len(res.Spectrum)
	if n == 0 {
		return nil, ErrNothingToPlot
	}

	p := plot.New()
	p.Title.Text = opts.Title
	if p.Title.Text == "" {
		p.Title.Text = res.Name
	}
	p.X.Label.Text = "Channel"
	p.Y.Label.Text = "Counts"
	p.X.Min = 0
	p.X.Max = float64(n)
	p.Y.Min = 0
	p.Y.Max = common.Max(res.Spectrum) * 1.1
	if p.Y.Max <= 0 {
		p.Y.Max = 1
	}
	p.Add(plotter.NewGrid())

	if opts.To > opts.From {
		span, err := spanPolygon(opts.From, opts.To, p.Y.Max)
		if err != nil {
			return nil, err
		}
		p.Add(span)
	}

	countsLine, err := plotter.NewLine(series(res.Spectrum))
	if err != nil {
		return nil, fmt.Errorf("counts: %w", err)
	}
	countsLine.LineStyle.Color = plotutil.Color(0)
	p.Add(countsLine)
	p.Legend.Add(legendName(res.Name), countsLine)

	if !opts.HideForeground {
		fgLine, err := plotter.NewLine(series(res.Foreground))
		if err != nil {
			return nil, fmt.Errorf("foreground: %w", err)
		}
		fgLine.LineStyle.Color = plotutil.Color(3)
		p.Add(fgLine)
		p.Legend.Add("W/o Background", fgLine)
	}

	bgLine, err := plotter.NewLine(series(res.Background))
	if err != nil {
		return nil, fmt.Errorf("background: %w", err)
	}
	bgLine.LineStyle.Color = plotutil.Color(2)
	bgLine.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(3)}
	p.Add(bgLine)
	p.Legend.Add(backgroundLabel(res), bgLine)

	p.Legend.Top = true
	return p, nil
}

// Save writes the chart to path; the extension selects the format
// (png, svg, pdf, eps, jpg, tif).
func Save(path string, res *analysis.Result, opts Options) error {
	p, err := Build(res, opts)
	if err != nil {
		return err
	}
	w, h := size(opts)
	if err := p.Save(w, h, path); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Write renders the chart in format to w
func Write(w io.Writer, format string, res *analysis.Result, opts Options) error {
	p, err := Build(res, opts)
	if err != nil {
		return err
	}
	width, height := size(opts)
	wt, err := p.WriterTo(width, height, strings.ToLower(format))
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", format, err)
	}
	_, err = wt.WriteTo(w)
	return err
}

func size(opts Options) (vg.Length, vg.Length) {
	def := DefaultOptions()
	w, h := opts.Width, opts.Height
	if w <= 0 {
		w = def.Width
	}
	if h <= 0 {
		h = def.Height
	}
	return w, h
}

func series(data []float64) plotter.XYs {
	pts := make(plotter.XYs, len(data))
	for i, v := range data {
		pts[i].X = float64(i)
		pts[i].Y = v
	}
	return pts
}

func spanPolygon(from, to int, top float64) (*plotter.Polygon, error) {
	poly, err := plotter.NewPolygon(plotter.XYs{
		{X: float64(from), Y: 0},
		{X: float64(to), Y: 0},
		{X: float64(to), Y: top},
		{X: float64(from), Y: top},
	})
	if err != nil {
		return nil, fmt.Errorf("counting range: %w", err)
	}
	poly.Color = spanColor
	poly.LineStyle.Width = 0
	return poly, nil
}

func legendName(name string) string {
	if name == "" {
		return "Counts"
	}
	return name
}

func backgroundLabel(res *analysis.Result) string {
	if res.Config != nil && res.Config.Method != "" {
		return strings.ToUpper(string(res.Config.Method))
	}
	return "Background"
}
