// Package spectrumio reads ASCII count spectra and writes analysis results.
package spectrumio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/RyanBlaney/sonido-baseline/logging"
)

var (
	// ErrNoData is returned when a file holds no numeric rows
	ErrNoData = errors.New("spectrumio: no data rows")

	// ErrMalformed is returned for unparsable values or ragged rows
	ErrMalformed = errors.New("spectrumio: malformed spectrum")
)

// Spectrum is a decoded count spectrum. Multi-column files are flattened
// row by row, so channel = row*Columns + column.
type Spectrum struct {
	Name          string    `json:"name"`
	Source        string    `json:"source,omitempty"`
	Counts        []float64 `json:"counts"`
	Rows          int       `json:"rows"`
	Columns       int       `json:"columns"`
	DroppedFooter bool      `json:"dropped_footer,omitempty"`
}

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	CommentPrefix string `json:"comment_prefix"` // text from this marker to end of line is ignored
	RetryFooter   bool   `json:"retry_footer"`   // retry once without the last data line
	MaxLineBytes  int    `json:"max_line_bytes"`
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		CommentPrefix: "$",
		RetryFooter:   true,
		MaxLineBytes:  1 << 20,
	}
}

// Decoder reads whitespace-separated ASCII spectra
type Decoder struct {
	config *DecoderConfig
	logger logging.Logger
}

// NewDecoder creates a decoder. A nil config selects the defaults.
func NewDecoder(config *DecoderConfig) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &Decoder{
		config: config,
		logger: logging.WithFields(logging.Fields{
			"component": "spectrum_decoder",
		}),
	}
}

// DecodeFile reads the spectrum stored at path
func (d *Decoder) DecodeFile(path string) (*Spectrum, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spectrum: %w", err)
	}
	defer f.Close()

	spec, err := d.DecodeReader(f, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	spec.Source = path
	return spec, nil
}

// DecodeReader reads a spectrum from r. name labels the result.
func (d *Decoder) DecodeReader(r io.Reader, name string) (*Spectrum, error) {
	lines, err := d.dataLines(r)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrNoData
	}

	spec, err := parseRows(lines)
	if err != nil && d.config.RetryFooter && len(lines) > 1 {
		d.logger.Debug("retrying without last line", logging.Fields{
			"name":  name,
			"line":  lines[len(lines)-1].number,
			"error": err.Error(),
		})

		retry, retryErr := parseRows(lines[:len(lines)-1])
		if retryErr == nil {
			retry.DroppedFooter = true
			spec, err = retry, nil
		}
	}
	if err != nil {
		return nil, err
	}

	spec.Name = name
	d.logger.Debug("spectrum decoded", logging.Fields{
		"name":     name,
		"channels": len(spec.Counts),
		"columns":  spec.Columns,
	})
	return spec, nil
}

type dataLine struct {
	number int
	fields []string
}

// dataLines strips comments and blank lines
func (d *Decoder) dataLines(r io.Reader) ([]dataLine, error) {
	scanner := bufio.NewScanner(r)
	if d.config.MaxLineBytes > 0 {
		scanner.Buffer(make([]byte, 0, 64*1024), d.config.MaxLineBytes)
	}

	var lines []dataLine
	number := 0
	for scanner.Scan() {
		number++
		text := scanner.Text()
		if d.config.CommentPrefix != "" {
			if idx := strings.Index(text, d.config.CommentPrefix); idx >= 0 {
				text = text[:idx]
			}
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		lines = append(lines, dataLine{number: number, fields: fields})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read spectrum: %w", err)
	}
	return lines, nil
}

// parseRows converts rows of equal width into a flat channel slice
func parseRows(lines []dataLine) (*Spectrum, error) {
	columns := len(lines[0].fields)
	counts := make([]float64, 0, columns*len(lines))

	for _, line := range lines {
		if len(line.fields) != columns {
			return nil, fmt.Errorf("%w: line %d has %d columns, expected %d",
				ErrMalformed, line.number, len(line.fields), columns)
		}
		for _, field := range line.fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %q is not a number", ErrMalformed, line.number, field)
			}
			counts = append(counts, v)
		}
	}

	return &Spectrum{
		Counts:  counts,
		Rows:    len(lines),
		Columns: columns,
	}, nil
}
