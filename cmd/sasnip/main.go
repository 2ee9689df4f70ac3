// Command sasnip estimates and subtracts the background of ASCII count spectra.
//
//	sasnip [flags] spectrum.dat [more.dat ...]
//
// Flags override values from -config. With several inputs, -csv and -plot
// name directories that receive one file per spectrum.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/RyanBlaney/sonido-baseline/algorithms/background"
	"github.com/RyanBlaney/sonido-baseline/analysis"
	"github.com/RyanBlaney/sonido-baseline/analysis/config"
	"github.com/RyanBlaney/sonido-baseline/logging"
	"github.com/RyanBlaney/sonido-baseline/render"
	"github.com/RyanBlaney/sonido-baseline/spectrumio"
)

// CLI configuration
type cliConfig struct {
	configFile string
	method     string

	// Clipping
	t         float64
	tolerance float64
	decrease  bool
	smooth    bool
	useLLS    bool

	// Peak search
	peakMin   int
	peakMax   int
	threshold float64
	plateau   bool
	settle    float64

	// Loop control
	maxIterations    int
	recompute        bool
	clipOutside      bool
	inside           string
	maxHalfWindow    int
	preSmoothWindow  int
	smoothHalfWindow int

	// Output
	from       int
	to         int
	foreground bool
	csvPath    string
	plotPath   string
	jsonOut    bool
	workers    int

	// Logging
	verbose  bool
	logLevel string
}

func parseFlags(fs *flag.FlagSet, args []string) (*cliConfig, error) {
	c := &cliConfig{}
	def := config.DefaultBackgroundConfig()

	fs.StringVar(&c.configFile, "config", "", "JSON configuration file")
	fs.StringVar(&c.method, "method", string(def.Method), "background method (sasnip, snip)")

	// Clipping
	fs.Float64Var(&c.t, "t", def.T, "FWHM multiplier for clipping radii")
	fs.Float64Var(&c.tolerance, "tolerance", def.Tolerance, "relative convergence tolerance")
	fs.BoolVar(&c.decrease, "decrease", def.Decrease, "sweep window radius from large to small")
	fs.BoolVar(&c.smooth, "smooth", def.Smooth, "smooth counts before the transform")
	fs.BoolVar(&c.useLLS, "lls", def.UseLLS, "apply the LLS transform")

	// Peak search
	fs.IntVar(&c.peakMin, "peak-min", def.PeakMinimum, "minimum peak base width in channels")
	fs.IntVar(&c.peakMax, "peak-max", def.PeakMaximum, "maximum peak base width in channels")
	fs.Float64Var(&c.threshold, "threshold", def.DerivativeThreshold, "derivative threshold on both flanks")
	fs.BoolVar(&c.plateau, "plateau", def.PlateauMinima, "treat flat-to-rising derivative steps as minima")
	fs.Float64Var(&c.settle, "settle", def.SettleFraction, "end a flank where its slope decays to this fraction of the steepest, 0 disables")

	// Loop control
	fs.IntVar(&c.maxIterations, "max-iter", def.MaxIterations, "outer iteration cap")
	fs.BoolVar(&c.recompute, "recompute", def.RecomputeFWHM, "re-detect peaks on every outer iteration")
	fs.BoolVar(&c.clipOutside, "clip-outside", def.ClipOutsidePeaks, "also clip channels outside detected peaks")
	fs.StringVar(&c.inside, "inside", def.InsidePeak, "inside-peak rule (exclude-unit, nonzero)")
	fs.IntVar(&c.maxHalfWindow, "mhw", def.MaxHalfWindow, "max half window for -method snip")
	fs.IntVar(&c.preSmoothWindow, "shw", def.PreSmoothHalfWindow, "moving-average half window applied to the counts before clipping (snip preset: 3)")
	fs.IntVar(&c.smoothHalfWindow, "smooth-window", def.SmoothHalfWindow, "moving-average half window applied to the background")

	// Output
	fs.IntVar(&c.from, "from", 0, "first channel of the counting range")
	fs.IntVar(&c.to, "to", 0, "end channel (exclusive) of the counting range, 0 disables")
	fs.BoolVar(&c.foreground, "foreground", true, "count foreground instead of raw counts")
	fs.StringVar(&c.csvPath, "csv", "", "write channel,counts,background,foreground CSV")
	fs.StringVar(&c.plotPath, "plot", "", "write a chart (png, svg, pdf by extension)")
	fs.BoolVar(&c.jsonOut, "json", false, "print results as JSON")
	fs.IntVar(&c.workers, "workers", 0, "parallel spectra (0 = number of CPUs)")

	// Logging
	fs.BoolVar(&c.verbose, "v", false, "debug logging")
	fs.StringVar(&c.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return c, nil
}

// backgroundConfig starts from the preset of the method, overlays -config and
// then applies every flag that was set explicitly. An explicit -method picks
// the preset under the file; otherwise the file's own method does.
func (c *cliConfig) backgroundConfig(fs *flag.FlagSet) (*config.BackgroundConfig, error) {
	var method config.Method
	if isSet(fs, "method") {
		method = config.Method(strings.ToLower(c.method))
	}

	cfg := config.ConfigForMethod(method)
	if c.configFile != "" {
		loaded, err := config.LoadFileFor(c.configFile, method)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "method":
			cfg.Method = config.Method(strings.ToLower(c.method))
		case "t":
			cfg.T = c.t
		case "tolerance":
			cfg.Tolerance = c.tolerance
		case "decrease":
			cfg.Decrease = c.decrease
		case "smooth":
			cfg.Smooth = c.smooth
		case "lls":
			cfg.UseLLS = c.useLLS
		case "peak-min":
			cfg.PeakMinimum = c.peakMin
		case "peak-max":
			cfg.PeakMaximum = c.peakMax
		case "threshold":
			cfg.DerivativeThreshold = c.threshold
		case "plateau":
			cfg.PlateauMinima = c.plateau
		case "settle":
			cfg.SettleFraction = c.settle
		case "max-iter":
			cfg.MaxIterations = c.maxIterations
		case "recompute":
			cfg.RecomputeFWHM = c.recompute
		case "clip-outside":
			cfg.ClipOutsidePeaks = c.clipOutside
		case "inside":
			cfg.InsidePeak = c.inside
		case "mhw":
			cfg.MaxHalfWindow = c.maxHalfWindow
		case "shw":
			cfg.PreSmoothHalfWindow = c.preSmoothWindow
		case "smooth-window":
			cfg.SmoothHalfWindow = c.smoothHalfWindow
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func isSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// report is the per-spectrum output
type report struct {
	Name       string           `json:"name"`
	Channels   int              `json:"channels"`
	Iterations int              `json:"iterations"`
	Converged  bool             `json:"converged"`
	Peaks      int              `json:"peaks"`
	Summary    analysis.Summary `json:"summary"`
	Counts     *float64         `json:"counts,omitempty"`
	Region     *analysis.Region `json:"region,omitempty"`
	Error      string           `json:"error,omitempty"`
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("sasnip", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: sasnip [flags] spectrum.dat [more.dat ...]")
		fs.PrintDefaults()
	}

	cli, err := parseFlags(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	logger := logging.NewDefaultLoggerWithWriter(os.Stderr)
	level, ok := logging.ParseLevel(cli.logLevel)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown log level %q\n", cli.logLevel)
		return 2
	}
	if cli.verbose {
		level = logging.DebugLevel
	}
	logger.SetLevel(level)
	logging.SetGlobalLogger(logger)

	cfg, err := cli.backgroundConfig(fs)
	if err != nil {
		logger.Error(err, "configuration rejected")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	reports, failed := process(ctx, cli, cfg, fs.Args())
	if cli.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			logger.Error(err, "failed to write JSON")
			return 1
		}
	} else {
		for _, r := range reports {
			printReport(r)
		}
	}

	if failed > 0 {
		return 1
	}
	return 0
}

func process(ctx context.Context, cli *cliConfig, cfg *config.BackgroundConfig, paths []string) ([]report, int) {
	ctx = logging.ContextWithFields(ctx, logging.Fields{
		"command": "sasnip",
		"inputs":  len(paths),
	})
	logger := logging.WithContext(ctx).WithFields(logging.Fields{"component": "sasnip_cli"})

	analyzer, err := analysis.NewAnalyzer(cfg)
	if err != nil {
		logger.Error(err, "failed to create analyzer")
		return nil, len(paths)
	}

	decoder := spectrumio.NewDecoder(nil)
	reports := make([]report, len(paths))
	inputs := make([]analysis.Input, 0, len(paths))
	index := make([]int, 0, len(paths))
	failed := 0

	for i, path := range paths {
		reports[i].Name = path
		spec, err := decoder.DecodeFile(path)
		if err != nil {
			reports[i].Error = err.Error()
			failed++
			continue
		}
		inputs = append(inputs, analysis.Input{Name: spec.Name, Counts: spec.Counts})
		index = append(index, i)
	}

	results, errs := analyzer.AnalyzeBatch(ctx, inputs, cli.workers)
	multi := len(paths) > 1

	for k, res := range results {
		r := &reports[index[k]]
		if res == nil {
			r.Error = errs[k].Error()
			failed++
			continue
		}

		r.Channels = len(res.Spectrum)
		r.Iterations = res.Iterations
		r.Converged = res.Converged
		r.Peaks = len(res.Peaks)
		r.Summary = res.Summary
		if errs[k] != nil {
			r.Error = errs[k].Error()
			if !errors.Is(errs[k], background.ErrNotConverged) {
				failed++
			}
		}

		if cli.to > cli.from {
			if err := fillRange(r, res, cli); err != nil {
				r.Error = err.Error()
				failed++
				continue
			}
		}

		if err := writeOutputs(res, cli, multi, paths[index[k]]); err != nil {
			logger.Error(err, "failed to write output", logging.Fields{"spectrum": res.Name})
			r.Error = err.Error()
			failed++
		}
	}

	return reports, failed
}

func fillRange(r *report, res *analysis.Result, cli *cliConfig) error {
	total, err := res.Counts(cli.from, cli.to, cli.foreground)
	if err != nil {
		return err
	}
	region, err := res.Region(cli.from, cli.to)
	if err != nil {
		return err
	}
	r.Counts = &total
	r.Region = region
	return nil
}

func writeOutputs(res *analysis.Result, cli *cliConfig, multi bool, source string) error {
	if multi {
		for _, dir := range []string{cli.csvPath, cli.plotPath} {
			if dir == "" {
				continue
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
	}

	if cli.csvPath != "" {
		path := outputPath(cli.csvPath, source, ".csv", multi)
		if err := spectrumio.EncodeFile(path, res); err != nil {
			return err
		}
	}
	if cli.plotPath != "" {
		path := outputPath(cli.plotPath, source, ".png", multi)
		opts := render.DefaultOptions()
		opts.From, opts.To = cli.from, cli.to
		if err := render.Save(path, res, opts); err != nil {
			return err
		}
	}
	return nil
}

// outputPath returns target for a single input, or target/<base><ext> when
// several spectra share the flag.
func outputPath(target, source, ext string, multi bool) string {
	if !multi {
		return target
	}
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return filepath.Join(target, base+ext)
}

func printReport(r report) {
	if r.Channels == 0 && r.Error != "" {
		fmt.Printf("%s: error: %s\n", r.Name, r.Error)
		return
	}

	status := "converged"
	if !r.Converged {
		status = "not converged"
	}
	fmt.Printf("%s: %d channels, %d peaks, %s after %d iterations\n",
		r.Name, r.Channels, r.Peaks, status, r.Iterations)
	fmt.Printf("  total %.6g  background %.6g  foreground %.6g\n",
		r.Summary.TotalCounts, r.Summary.BackgroundCounts, r.Summary.ForegroundCounts)
	if r.Counts != nil {
		fmt.Printf("  counts [%d, %d): %d\n", r.Region.From, r.Region.To, int(*r.Counts))
	}
	if r.Error != "" {
		fmt.Printf("  warning: %s\n", r.Error)
	}
}
