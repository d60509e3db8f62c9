package calibration

import (
	"fmt"
	"math"
	"sync"

	"amuza/internal/device"
)

// Profile holds the linear conversion for one metabolite.
type Profile struct {
	Gain   float64
	Offset float64
}

// defaultGains are the factory conversion gains.
var defaultGains = map[Metabolite]float64{
	Glutamate: 0.97,
	Glutamine: 0.418,
	Glucose:   0.6854,
	Lactate:   0.0609,
}

// Options tunes the stability check applied during calibration.
type Options struct {
	// StabilityWindow is the minimum number of raw readings a
	// calibration window must contain.
	StabilityWindow int

	// StabilityThreshold is the maximum relative standard deviation
	// tolerated across the window.
	StabilityThreshold float64

	// GainOverrides replaces factory gains per metabolite.
	GainOverrides map[Metabolite]float64
}

// Engine converts raw differential signals into concentrations and
// recomputes gains against known standards. Safe for concurrent use.
type Engine struct {
	mu        sync.RWMutex
	profiles  map[Metabolite]Profile
	expected  map[Metabolite]float64
	window    int
	threshold float64
}

// NewEngine returns an engine seeded with factory gains.
func NewEngine(opts Options) *Engine {
	if opts.StabilityWindow < 1 {
		opts.StabilityWindow = 10
	}
	if opts.StabilityThreshold <= 0 {
		opts.StabilityThreshold = 0.05
	}

	profiles := make(map[Metabolite]Profile, len(defaultGains))
	for m, gain := range defaultGains {
		if override, ok := opts.GainOverrides[m]; ok {
			gain = override
		}
		profiles[m] = Profile{Gain: gain}
	}
	return &Engine{
		profiles:  profiles,
		expected:  make(map[Metabolite]float64),
		window:    opts.StabilityWindow,
		threshold: opts.StabilityThreshold,
	}
}

// SetExpected records the known concentration of the calibration
// standard for a metabolite.
func (e *Engine) SetExpected(m Metabolite, concentration float64) error {
	if _, ok := signalPairs[m]; !ok {
		return device.Wrap(device.ErrValidation, "calibration", "set-expected",
			fmt.Sprintf("unknown metabolite %q", m), nil)
	}
	if concentration <= 0 {
		return device.Wrap(device.ErrValidation, "calibration", "set-expected",
			fmt.Sprintf("expected concentration must be positive, got %v", concentration), nil)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.expected[m] = concentration
	return nil
}

// Expected returns the recorded standard concentration, if any.
func (e *Engine) Expected(m Metabolite) (float64, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.expected[m]
	return v, ok
}

// SetGain overrides the conversion gain for a metabolite directly.
func (e *Engine) SetGain(m Metabolite, gain float64) error {
	if _, ok := signalPairs[m]; !ok {
		return device.Wrap(device.ErrValidation, "calibration", "set-gain",
			fmt.Sprintf("unknown metabolite %q", m), nil)
	}
	if gain == 0 {
		return device.Wrap(device.ErrValidation, "calibration", "set-gain",
			"gain must be non-zero", nil)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	profile := e.profiles[m]
	profile.Gain = gain
	e.profiles[m] = profile
	return nil
}

// Calibrate recomputes the gain for a metabolite from a window of raw
// differential readings taken while the electrode sat in the standard.
// The window must be stable and its mean non-zero, and the standard's
// concentration must have been set beforehand.
func (e *Engine) Calibrate(m Metabolite, window []float64) (Profile, error) {
	if _, ok := signalPairs[m]; !ok {
		return Profile{}, device.Wrap(device.ErrValidation, "calibration", "calibrate",
			fmt.Sprintf("unknown metabolite %q", m), nil)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	expected, ok := e.expected[m]
	if !ok {
		return Profile{}, device.Wrap(device.ErrCalibration, "calibration", "calibrate",
			fmt.Sprintf("no expected concentration set for %s", m), nil)
	}
	if len(window) < e.window {
		return Profile{}, device.Wrap(device.ErrCalibration, "calibration", "calibrate",
			fmt.Sprintf("need %d readings, got %d", e.window, len(window)), nil)
	}

	mean, spread := meanAndRelSpread(window)
	if mean == 0 {
		return Profile{}, device.Wrap(device.ErrCalibration, "calibration", "calibrate",
			"raw signal is zero, electrode may be disconnected", nil)
	}
	if spread > e.threshold {
		return Profile{}, device.Wrap(device.ErrCalibration, "calibration", "calibrate",
			fmt.Sprintf("signal unstable, relative deviation %.3f exceeds %.3f", spread, e.threshold), nil)
	}

	profile := e.profiles[m]
	profile.Gain = expected / mean
	e.profiles[m] = profile
	return profile, nil
}

// Apply converts a raw differential signal into a concentration using
// the current profile. Metabolites without a profile pass through
// unchanged.
func (e *Engine) Apply(m Metabolite, raw float64) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	profile, ok := e.profiles[m]
	if !ok {
		return raw
	}
	return raw*profile.Gain + profile.Offset
}

// Profiles returns a snapshot of all conversion profiles.
func (e *Engine) Profiles() map[Metabolite]Profile {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[Metabolite]Profile, len(e.profiles))
	for m, p := range e.profiles {
		out[m] = p
	}
	return out
}

// meanAndRelSpread returns the mean of the window and the standard
// deviation relative to the mean's magnitude.
func meanAndRelSpread(window []float64) (float64, float64) {
	var sum float64
	for _, v := range window {
		sum += v
	}
	mean := sum / float64(len(window))

	var sq float64
	for _, v := range window {
		d := v - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(len(window)))
	if mean == 0 {
		return 0, 0
	}
	return mean, std / math.Abs(mean)
}
