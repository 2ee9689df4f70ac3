package render

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-baseline/analysis"
	"github.com/RyanBlaney/sonido-baseline/internal/testutil"
	"github.com/RyanBlaney/sonido-baseline/logging"
)

func TestMain(m *testing.M) {
	logging.SetGlobalLogger(&logging.NoOpLogger{})
	m.Run()
}

func sampleResult(t *testing.T) *analysis.Result {
	t.Helper()
	a, err := analysis.NewAnalyzer(nil)
	require.NoError(t, err)

	signal := testutil.Gaussian(testutil.Parabola(200, 10, 0.01, 100), 1000, 100, 3)
	res, err := a.Analyze(context.Background(), "bowl.dat", signal)
	require.NoError(t, err)
	return res
}

func TestWritePNG(t *testing.T) {
	res := sampleResult(t)

	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.From, opts.To = 90, 111
	require.NoError(t, Write(&buf, "PNG", res, opts))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}

func TestWriteSVG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "svg", sampleResult(t), Options{HideForeground: true}))
	assert.Contains(t, buf.String(), "<svg")
}

func TestSaveByExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spectrum.png")
	require.NoError(t, Save(path, sampleResult(t), DefaultOptions()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestBuildErrors(t *testing.T) {
	_, err := Build(&analysis.Result{}, DefaultOptions())
	assert.ErrorIs(t, err, ErrNothingToPlot)

	var buf bytes.Buffer
	err = Write(&buf, "bmp-ish", sampleResult(t), DefaultOptions())
	assert.Error(t, err)
}

func TestBuildTitleAndLegend(t *testing.T) {
	res := sampleResult(t)
	p, err := Build(res, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "bowl.dat", p.Title.Text)
	assert.Equal(t, "SASNIP", backgroundLabel(res))
	assert.InDelta(t, 1.1*1010, p.Y.Max, 1)
}
