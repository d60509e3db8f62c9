package outputs

import (
	"time"

	"amuza/internal/calibration"
)

// Sample is one calibrated sensor reading ready for publication.
type Sample struct {
	Timestamp   time.Time                          `json:"timestamp"`
	Counter     uint64                             `json:"counter"`
	Well        string                             `json:"well,omitempty"`
	Channels    []float64                          `json:"channels"`
	Temperature float64                            `json:"temperature"`
	Metabolites map[calibration.Metabolite]float64 `json:"metabolites"`
}

// Output delivers samples to one sink.
type Output interface {
	Publish(Sample) error
	Close() error
}
