package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"amuza/internal/amuza"
	"amuza/internal/calibration"
	"amuza/internal/collector"
	"amuza/internal/config"
	"amuza/internal/logging"
	"amuza/internal/outputs"
	"amuza/internal/potentiostat"
	"amuza/internal/preflight"
	"amuza/internal/readings"
	"amuza/internal/runs"
	"amuza/internal/sequence"
)

// Daemon owns the device links and coordinates sampling runs. It
// enforces single-instance execution via a lock file.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *runs.Store

	conn       *amuza.Connection
	controller *sequence.Controller
	stream     *potentiostat.Stream
	engine     *calibration.Engine
	recorder   *readings.Logger
	collector  *collector.Collector
	monitor    *serialMonitor

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc

	mu            sync.Mutex
	activeRunID   string
	stopRequested bool
}

// Status represents daemon runtime information.
type Status struct {
	Running   bool
	PID       int
	Phase     string
	Well      string
	HasWell   bool
	Position  int
	Total     int
	Tray      string
	Profiles  map[calibration.Metabolite]calibration.Profile
	ActiveRun *runs.Run
	Runs      runs.HealthSummary

	RunsDBPath  string
	LockPath    string
	SessionPath string
	Dropped     uint64
}

// New constructs a daemon with initialized dependencies. Device links
// are opened by Start.
func New(cfg *config.Config, store *runs.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	engine := calibration.NewEngine(calibration.Options{
		StabilityWindow:    cfg.Calibration.StabilityWindow,
		StabilityThreshold: cfg.Calibration.StabilityThreshold,
		GainOverrides:      parseGainOverrides(cfg.Calibration.GainOverrides),
	})
	for name, expected := range cfg.Calibration.Expected {
		m, err := calibration.Parse(name)
		if err != nil {
			return nil, err
		}
		if err := engine.SetExpected(m, expected); err != nil {
			return nil, err
		}
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "amuzad.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		engine:   engine,
		recorder: readings.NewLogger(cfg.Paths.ReadingsDir),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

func parseGainOverrides(raw map[string]float64) map[calibration.Metabolite]float64 {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[calibration.Metabolite]float64, len(raw))
	for name, gain := range raw {
		m, err := calibration.Parse(name)
		if err != nil {
			continue
		}
		out[m] = gain
	}
	return out
}

// Start acquires the lock, runs preflight checks, and opens both device
// links.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another amuza daemon instance is already running")
	}

	if failed := preflight.Failed(preflight.RunAll(ctx, d.cfg)); len(failed) > 0 {
		_ = d.lock.Unlock()
		details := make([]string, 0, len(failed))
		for _, r := range failed {
			details = append(details, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
		return fmt.Errorf("preflight failed: %s", strings.Join(details, "; "))
	}

	if n, err := d.store.FailActive(ctx, runs.ShutdownReason); err != nil {
		d.logger.Warn("cleaning up stale runs", logging.Error(err))
	} else if n > 0 {
		d.logger.Info("failed stale runs from previous session", logging.Int("count", n))
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.openDevices(); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		return err
	}

	d.monitor = newSerialMonitor(d.cfg, d.logger)
	if err := d.monitor.Start(d.ctx); err != nil {
		d.logger.Warn("serial hotplug monitor unavailable", logging.Error(err))
	}

	d.running.Store(true)
	d.logger.Info("amuza daemon started",
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldEventType, "daemon_start"))
	return nil
}

func (d *Daemon) openDevices() error {
	var transport amuza.Transport
	var err error
	if d.cfg.Amuza.Mock {
		transport = amuza.NewMockTransport()
	} else {
		transport, err = amuza.OpenSerial(d.cfg.Amuza.Port, d.cfg.Amuza.BaudRate)
		if err != nil {
			return fmt.Errorf("open collector link: %w", err)
		}
	}

	d.conn, err = amuza.Connect(transport, amuza.Options{
		AckTimeout:    time.Duration(d.cfg.Amuza.AckTimeoutSeconds) * time.Second,
		QueryInterval: time.Duration(d.cfg.Amuza.QueryIntervalMS) * time.Millisecond,
		Logger:        d.logger,
	})
	if err != nil {
		return fmt.Errorf("connect collector: %w", err)
	}

	d.controller = sequence.New(d.conn, d.logger)

	var reader potentiostat.FrameReader
	if d.cfg.Potentiostat.Mock {
		reader = potentiostat.NewMockReader(time.Second)
	} else {
		reader, err = potentiostat.Open(potentiostat.Config{
			Port:                d.cfg.Potentiostat.Port,
			BaudRate:            d.cfg.Potentiostat.BaudRate,
			ReadTimeout:         time.Duration(d.cfg.Potentiostat.ReadTimeoutMS) * time.Millisecond,
			FrameErrorThreshold: d.cfg.Potentiostat.FrameErrorThreshold,
		})
		if err != nil {
			_ = d.conn.Close()
			return fmt.Errorf("open sensor stream: %w", err)
		}
	}
	d.stream = potentiostat.NewStream(reader, d.cfg.Potentiostat.StreamBuffer, d.logger)

	var sinks []outputs.Output
	if d.cfg.MQTT.Enabled {
		sink, err := outputs.NewMQTT(d.cfg.MQTT)
		if err != nil {
			d.logger.Warn("MQTT output unavailable", logging.Error(err))
		} else {
			sinks = append(sinks, sink)
		}
	}

	d.collector = collector.New(collector.Options{
		Stream:     d.stream,
		Engine:     d.engine,
		Recorder:   d.recorder,
		Outputs:    sinks,
		Logger:     d.logger,
		WindowSize: d.cfg.Calibration.StabilityWindow,
	})
	d.controller.Subscribe(func(state sequence.RunState) {
		if state.HasWell {
			d.collector.SetWell(state.Well.Label())
		} else {
			d.collector.SetWell("")
		}
	})
	d.collector.Start()
	return nil
}

// Stop halts any active run, closes the device links, and releases the
// lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.running.Store(false)

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.controller.Stop(stopCtx); err != nil {
		d.logger.Warn("stopping active run", logging.Error(err))
	}

	if d.monitor != nil {
		d.monitor.Stop()
	}
	d.collector.Close()
	if err := d.stream.Close(); err != nil {
		d.logger.Warn("closing sensor stream", logging.Error(err))
	}
	if err := d.conn.Close(); err != nil {
		d.logger.Warn("closing collector link", logging.Error(err))
	}
	if err := d.recorder.Close(); err != nil {
		d.logger.Warn("closing readings log", logging.Error(err))
	}

	if n, err := d.store.FailActive(context.Background(), runs.ShutdownReason); err != nil {
		d.logger.Warn("failing interrupted runs", logging.Error(err))
	} else if n > 0 {
		d.logger.Info("failed interrupted runs", logging.Int("count", n))
	}

	if d.cancel != nil {
		d.cancel()
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("releasing daemon lock", logging.Error(err))
	}
	d.logger.Info("amuza daemon stopped",
		logging.String(logging.FieldEventType, "daemon_stop"))
}

// Running reports whether Start has completed successfully.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Status collects a runtime snapshot.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:    d.running.Load(),
		PID:        os.Getpid(),
		RunsDBPath: d.store.Path(),
		LockPath:   d.lockPath,
	}
	if !status.Running {
		return status
	}

	state := d.controller.State()
	status.Phase = string(state.Phase)
	status.HasWell = state.HasWell
	if state.HasWell {
		status.Well = state.Well.Label()
	}
	status.Position = state.Position
	status.Total = state.Total
	status.Tray = d.conn.Status().State.String()
	status.Profiles = d.engine.Profiles()
	status.SessionPath = d.recorder.Path()
	status.Dropped = d.stream.Dropped()

	if health, err := d.store.Health(ctx); err == nil {
		status.Runs = health
	}

	d.mu.Lock()
	activeID := d.activeRunID
	d.mu.Unlock()
	if activeID != "" {
		if run, err := d.store.GetByID(ctx, activeID); err == nil {
			status.ActiveRun = &run
		}
	}
	return status
}

// LatestSample returns the most recent calibrated sample.
func (d *Daemon) LatestSample() (outputs.Sample, bool) {
	if !d.running.Load() {
		return outputs.Sample{}, false
	}
	return d.collector.Latest()
}

// LogPath returns the daemon log file path.
func (d *Daemon) LogPath() string {
	return filepath.Join(d.cfg.Paths.LogDir, "amuzad.log")
}

func (d *Daemon) requireRunning() error {
	if !d.running.Load() {
		return errors.New("daemon is not running")
	}
	return nil
}
