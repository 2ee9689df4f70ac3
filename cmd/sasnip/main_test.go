package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-baseline/analysis/config"
	"github.com/RyanBlaney/sonido-baseline/internal/testutil"
)

func writeSpectrum(t *testing.T, dir, name string, counts []float64) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("$SPEC_DATA:\n")
	for i, v := range counts {
		fmt.Fprintf(&b, "%.3f", v)
		if i%4 == 3 {
			b.WriteByte('\n')
		} else {
			b.WriteByte(' ')
		}
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func testFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("sasnip", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bg.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"t": 3, "peak_maximum": 60}`), 0o644))

	fs := testFlagSet()
	cli, err := parseFlags(fs, []string{"-config", cfgPath, "-t", "2", "-plateau", "in.dat"})
	require.NoError(t, err)

	cfg, err := cli.backgroundConfig(fs)
	require.NoError(t, err)
	assert.Equal(t, 2.0, cfg.T)
	assert.Equal(t, 60, cfg.PeakMaximum)
	assert.True(t, cfg.PlateauMinima)
	assert.Equal(t, 0.005, cfg.Tolerance)
}

func TestMethodFlagSelectsPreset(t *testing.T) {
	fs := testFlagSet()
	cli, err := parseFlags(fs, []string{"-method", "snip", "in.dat"})
	require.NoError(t, err)

	cfg, err := cli.backgroundConfig(fs)
	require.NoError(t, err)
	assert.Equal(t, config.MethodSNIP, cfg.Method)
	assert.Equal(t, 20, cfg.MaxHalfWindow)
}

func TestMethodFlagRebasesConfigFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "bg.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"method": "sasnip", "t": 3}`), 0o644))

	fs := testFlagSet()
	cli, err := parseFlags(fs, []string{"-config", cfgPath, "-method", "snip", "in.dat"})
	require.NoError(t, err)

	cfg, err := cli.backgroundConfig(fs)
	require.NoError(t, err)
	assert.Equal(t, config.MethodSNIP, cfg.Method)
	assert.Equal(t, 20, cfg.MaxHalfWindow)
	assert.Equal(t, 3, cfg.PreSmoothHalfWindow)
	assert.Equal(t, 3.0, cfg.T)

	// without -method the file decides
	fs = testFlagSet()
	cli, err = parseFlags(fs, []string{"-config", cfgPath, "in.dat"})
	require.NoError(t, err)
	cfg, err = cli.backgroundConfig(fs)
	require.NoError(t, err)
	assert.Equal(t, config.MethodSASNIP, cfg.Method)
	assert.Equal(t, 10, cfg.MaxHalfWindow)
}

func TestPipelineFlags(t *testing.T) {
	fs := testFlagSet()
	cli, err := parseFlags(fs, []string{"-settle", "0", "-clip-outside", "-shw", "2", "in.dat"})
	require.NoError(t, err)

	cfg, err := cli.backgroundConfig(fs)
	require.NoError(t, err)
	assert.Zero(t, cfg.SettleFraction)
	assert.True(t, cfg.ClipOutsidePeaks)
	assert.Equal(t, 2, cfg.PreSmoothHalfWindow)
}

func TestInvalidFlagValueIsRejected(t *testing.T) {
	fs := testFlagSet()
	cli, err := parseFlags(fs, []string{"-max-iter", "0", "in.dat"})
	require.NoError(t, err)

	_, err = cli.backgroundConfig(fs)
	assert.ErrorContains(t, err, "max_iterations")
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, "out.csv", outputPath("out.csv", "/data/run1.dat", ".csv", false))
	assert.Equal(t, filepath.Join("out", "run1.png"), outputPath("out", "/data/run1.dat", ".png", true))
}

func TestRunWritesCSV(t *testing.T) {
	dir := t.TempDir()
	in := writeSpectrum(t, dir, "peak.dat", testutil.GaussianOnBaseline(200, 10, 1000, 100, 3))
	csvPath := filepath.Join(dir, "peak.csv")

	code := run([]string{"-from", "90", "-to", "111", "-csv", csvPath, "-log-level", "error", in})
	assert.Equal(t, 0, code)

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 201)
	assert.Equal(t, "channel,counts,background,foreground", lines[0])
}

func TestRunReportsMissingFile(t *testing.T) {
	code := run([]string{"-log-level", "error", filepath.Join(t.TempDir(), "nope.dat")})
	assert.Equal(t, 1, code)
}

func TestRunUsageErrors(t *testing.T) {
	assert.Equal(t, 2, run(nil))
	assert.Equal(t, 2, run([]string{"-log-level", "loud", "x.dat"}))
}
