// Package peaks locates peaks in a count spectrum from sign changes of its
// smoothed first derivative and estimates a per-channel FWHM.
package peaks

// Crossing marks a derivative sign change at a channel
type Crossing int8

const (
	CrossingMaximum Crossing = -1 // derivative went from positive to non-positive
	CrossingNone    Crossing = 0
	CrossingMinimum Crossing = 1 // derivative went from negative to non-negative
)

func (c Crossing) String() string {
	switch c {
	case CrossingMaximum:
		return "maximum"
	case CrossingMinimum:
		return "minimum"
	default:
		return "none"
	}
}

// ClassifyCrossings scans adjacent derivative pairs (d[i], d[i+1]) and marks
// both channels of every sign change. Later pairs overwrite earlier marks.
// With plateauMinima a step from exactly zero to positive also counts as a
// minimum crossing.
func ClassifyCrossings(d []float64, plateauMinima bool) []Crossing {
	crossings := make([]Crossing, len(d))
	for i := 0; i+1 < len(d); i++ {
		switch {
		case d[i] > 0 && d[i+1] <= 0:
			crossings[i], crossings[i+1] = CrossingMaximum, CrossingMaximum
		case d[i] < 0 && d[i+1] >= 0:
			crossings[i], crossings[i+1] = CrossingMinimum, CrossingMinimum
		case plateauMinima && d[i] == 0 && d[i+1] > 0:
			crossings[i], crossings[i+1] = CrossingMinimum, CrossingMinimum
		}
	}
	return crossings
}
