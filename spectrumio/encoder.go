package spectrumio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/RyanBlaney/sonido-baseline/analysis"
)

// CSVHeader is the first record written by Encoder
var CSVHeader = []string{"channel", "counts", "background", "foreground"}

// Encoder writes analysis results as CSV, one record per channel
type Encoder struct {
	w *csv.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: csv.NewWriter(w)}
}

// Encode writes the header followed by every channel of res
func (e *Encoder) Encode(res *analysis.Result) error {
	n := len(res.Spectrum)
	if len(res.Background) != n || len(res.Foreground) != n {
		return fmt.Errorf("%w: result series differ in length", ErrMalformed)
	}

	if err := e.w.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, len(CSVHeader))
	for c := range n {
		record[0] = strconv.Itoa(c)
		record[1] = formatFloat(res.Spectrum[c])
		record[2] = formatFloat(res.Background[c])
		record[3] = formatFloat(res.Foreground[c])
		if err := e.w.Write(record); err != nil {
			return fmt.Errorf("failed to write channel %d: %w", c, err)
		}
	}

	e.w.Flush()
	return e.w.Error()
}

// EncodeFile writes res to path, replacing any existing file
func EncodeFile(path string, res *analysis.Result) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	return NewEncoder(f).Encode(res)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
