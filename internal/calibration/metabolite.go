package calibration

import (
	"fmt"
	"strings"

	"amuza/internal/device"
)

// Metabolite identifies one measured analyte.
type Metabolite string

const (
	Glutamate Metabolite = "glutamate"
	Glutamine Metabolite = "glutamine"
	Glucose   Metabolite = "glucose"
	Lactate   Metabolite = "lactate"
)

// Metabolites returns all supported metabolites in display order.
func Metabolites() []Metabolite {
	return []Metabolite{Glutamate, Glutamine, Glucose, Lactate}
}

// Parse converts a user-supplied name into a Metabolite.
func Parse(name string) (Metabolite, error) {
	m := Metabolite(strings.ToLower(strings.TrimSpace(name)))
	switch m {
	case Glutamate, Glutamine, Glucose, Lactate:
		return m, nil
	}
	return "", device.Wrap(device.ErrValidation, "calibration", "parse",
		fmt.Sprintf("unknown metabolite %q", name), nil)
}

// signalPair names the two electrode channels whose difference carries
// a metabolite's signal. Channels are 1-based.
type signalPair struct {
	active, reference int
}

var signalPairs = map[Metabolite]signalPair{
	Glutamate: {1, 2},
	Glutamine: {3, 1},
	Glucose:   {5, 4},
	Lactate:   {6, 4},
}

// Signal extracts the raw differential signal for a metabolite from a
// set of electrode channel values. Channels beyond the slice read as
// zero.
func Signal(m Metabolite, channels []float64) float64 {
	pair, ok := signalPairs[m]
	if !ok {
		return 0
	}
	return channelValue(channels, pair.active) - channelValue(channels, pair.reference)
}

func channelValue(channels []float64, n int) float64 {
	if n < 1 || n > len(channels) {
		return 0
	}
	return channels[n-1]
}
