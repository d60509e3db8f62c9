package collector

import (
	"log/slog"
	"sync"

	"amuza/internal/calibration"
	"amuza/internal/logging"
	"amuza/internal/outputs"
	"amuza/internal/potentiostat"
	"amuza/internal/readings"
)

// Options configures a Collector.
type Options struct {
	Stream   *potentiostat.Stream
	Engine   *calibration.Engine
	Recorder *readings.Logger
	Outputs  []outputs.Output
	Logger   *slog.Logger

	// WindowSize bounds the trailing raw-signal window kept per
	// metabolite for calibration.
	WindowSize int
}

// Collector pumps the sensor stream through calibration and out to the
// sinks.
type Collector struct {
	stream   *potentiostat.Stream
	engine   *calibration.Engine
	recorder *readings.Logger
	outputs  []outputs.Output
	logger   *slog.Logger

	mu         sync.Mutex
	well       string
	latest     outputs.Sample
	hasLatest  bool
	windows    map[calibration.Metabolite][]float64
	windowSize int

	done chan struct{}
	wg   sync.WaitGroup
}

// New builds a collector. Call Start to begin consuming the stream.
func New(opts Options) *Collector {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.WindowSize < 1 {
		opts.WindowSize = 10
	}
	return &Collector{
		stream:     opts.Stream,
		engine:     opts.Engine,
		recorder:   opts.Recorder,
		outputs:    opts.Outputs,
		logger:     opts.Logger,
		windows:    make(map[calibration.Metabolite][]float64),
		windowSize: opts.WindowSize,
		done:       make(chan struct{}),
	}
}

// Start launches the consuming goroutine.
func (c *Collector) Start() {
	c.wg.Add(1)
	go c.run()
}

// SetWell tags subsequent samples with the well currently under the
// needle. An empty label clears the tag.
func (c *Collector) SetWell(label string) {
	c.mu.Lock()
	c.well = label
	c.mu.Unlock()
}

// Latest returns the most recent calibrated sample, if any.
func (c *Collector) Latest() (outputs.Sample, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest, c.hasLatest
}

// Window returns a copy of the trailing raw differential signals for a
// metabolite, oldest first.
func (c *Collector) Window(m calibration.Metabolite) []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	window := c.windows[m]
	out := make([]float64, len(window))
	copy(out, window)
	return out
}

// Calibrate runs the calibration engine against the live trailing
// window for a metabolite.
func (c *Collector) Calibrate(m calibration.Metabolite) (calibration.Profile, error) {
	return c.engine.Calibrate(m, c.Window(m))
}

// Close stops consumption and closes the sinks. The underlying stream
// is owned by the caller and is not closed here.
func (c *Collector) Close() {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
	c.wg.Wait()
	for _, out := range c.outputs {
		if err := out.Close(); err != nil {
			c.logger.Warn("closing output", logging.Error(err))
		}
	}
}

func (c *Collector) run() {
	defer c.wg.Done()

	for {
		select {
		case <-c.done:
			return
		case frame, ok := <-c.stream.Frames():
			if !ok {
				if err := c.stream.Err(); err != nil {
					c.logger.Error("sensor stream failed", logging.Error(err))
				}
				return
			}
			c.process(frame)
		}
	}
}

func (c *Collector) process(frame potentiostat.Frame) {
	if c.recorder != nil {
		if err := c.recorder.Append(frame); err != nil {
			c.logger.Warn("recording sample", logging.Error(err))
		}
	}

	channels := frame.Channels[:]
	concentrations := make(map[calibration.Metabolite]float64, len(calibration.Metabolites()))

	c.mu.Lock()
	for _, m := range calibration.Metabolites() {
		raw := calibration.Signal(m, channels)
		window := append(c.windows[m], raw)
		if len(window) > c.windowSize {
			window = window[len(window)-c.windowSize:]
		}
		c.windows[m] = window
	}
	well := c.well
	c.mu.Unlock()

	for _, m := range calibration.Metabolites() {
		concentrations[m] = c.engine.Apply(m, calibration.Signal(m, channels))
	}

	sample := outputs.Sample{
		Timestamp:   frame.Timestamp,
		Counter:     frame.Counter,
		Well:        well,
		Channels:    append([]float64(nil), channels...),
		Temperature: frame.Temperature(),
		Metabolites: concentrations,
	}

	c.mu.Lock()
	c.latest = sample
	c.hasLatest = true
	c.mu.Unlock()

	for _, out := range c.outputs {
		if err := out.Publish(sample); err != nil {
			c.logger.Warn("publishing sample", logging.Error(err))
		}
	}
}
