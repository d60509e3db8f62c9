package daemon

import (
	"context"
	"strings"
	"time"

	"amuza/internal/calibration"
	"amuza/internal/logging"
	"amuza/internal/runs"
	"amuza/internal/sequence"
	"amuza/internal/wellplate"
)

// Eject opens the tray.
func (d *Daemon) Eject(ctx context.Context) error {
	if err := d.requireRunning(); err != nil {
		return err
	}
	return d.controller.Eject(ctx)
}

// Insert closes the tray.
func (d *Daemon) Insert(ctx context.Context) error {
	if err := d.requireRunning(); err != nil {
		return err
	}
	return d.controller.Insert(ctx)
}

// RunPlate starts a sampling run over a contiguous selection. The run
// executes in the background; the returned ID tracks it in history.
func (d *Daemon) RunPlate(ctx context.Context, selection string, samplingSeconds, bufferSeconds int) (string, error) {
	return d.startRun(ctx, runs.KindRunPlate, selection, samplingSeconds, bufferSeconds)
}

// Move starts a sampling run visiting wells in the given order,
// repeats included.
func (d *Daemon) Move(ctx context.Context, selection string, samplingSeconds, bufferSeconds int) (string, error) {
	return d.startRun(ctx, runs.KindMove, selection, samplingSeconds, bufferSeconds)
}

func (d *Daemon) startRun(ctx context.Context, kind runs.Kind, rawSelection string, samplingSeconds, bufferSeconds int) (string, error) {
	if err := d.requireRunning(); err != nil {
		return "", err
	}

	selection, err := wellplate.ParseSelection(rawSelection)
	if err != nil {
		return "", err
	}
	if samplingSeconds <= 0 {
		samplingSeconds = d.cfg.Sampling.SamplingSeconds
	}
	if bufferSeconds < 0 {
		bufferSeconds = d.cfg.Sampling.BufferSeconds
	}
	params := sequence.Params{
		Sampling: time.Duration(samplingSeconds) * time.Second,
		Buffer:   time.Duration(bufferSeconds) * time.Second,
	}
	if err := params.Validate(); err != nil {
		return "", err
	}

	run, err := d.store.Create(ctx, kind, strings.Join(selection.Labels(), ","), samplingSeconds, bufferSeconds)
	if err != nil {
		return "", err
	}

	d.mu.Lock()
	d.activeRunID = run.ID
	d.stopRequested = false
	d.mu.Unlock()

	if err := d.store.MarkRunning(ctx, run.ID); err != nil {
		d.logger.Warn("marking run running", logging.Error(err))
	}

	go d.executeRun(run.ID, kind, selection, params)
	return run.ID, nil
}

func (d *Daemon) executeRun(id string, kind runs.Kind, selection wellplate.Selection, params sequence.Params) {
	logger := d.logger.With(logging.String(logging.FieldRunID, id))
	logger.Info("run started",
		logging.String("kind", string(kind)),
		logging.Int("wells", len(selection)),
		logging.String(logging.FieldEventType, "run_start"))

	var err error
	if kind == runs.KindMove {
		err = d.controller.Move(d.ctx, selection, params)
	} else {
		err = d.controller.RunPlate(d.ctx, selection, params)
	}

	d.mu.Lock()
	stopped := d.stopRequested
	d.activeRunID = ""
	d.stopRequested = false
	d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	switch {
	case err != nil:
		logger.Error("run failed", logging.Error(err))
		if markErr := d.store.MarkFailed(ctx, id, err.Error()); markErr != nil {
			logger.Warn("recording run failure", logging.Error(markErr))
		}
	case stopped:
		logger.Info("run stopped", logging.String(logging.FieldEventType, "run_stop"))
		if markErr := d.store.MarkStopped(ctx, id); markErr != nil {
			logger.Warn("recording run stop", logging.Error(markErr))
		}
	default:
		logger.Info("run completed", logging.String(logging.FieldEventType, "run_complete"))
		if markErr := d.store.MarkCompleted(ctx, id); markErr != nil {
			logger.Warn("recording run completion", logging.Error(markErr))
		}
	}
}

// StopRun halts the active run, or resets the controller when idle.
func (d *Daemon) StopRun(ctx context.Context) error {
	if err := d.requireRunning(); err != nil {
		return err
	}

	d.mu.Lock()
	if d.activeRunID != "" {
		d.stopRequested = true
	}
	d.mu.Unlock()

	return d.controller.Stop(ctx)
}

// Calibrate recomputes the gain for a metabolite from the live signal
// window.
func (d *Daemon) Calibrate(name string) (calibration.Profile, error) {
	if err := d.requireRunning(); err != nil {
		return calibration.Profile{}, err
	}
	m, err := calibration.Parse(name)
	if err != nil {
		return calibration.Profile{}, err
	}
	profile, err := d.collector.Calibrate(m)
	if err != nil {
		return calibration.Profile{}, err
	}
	d.logger.Info("metabolite calibrated",
		logging.String("metabolite", string(m)),
		logging.Float64("gain", profile.Gain),
		logging.String(logging.FieldEventType, "calibrate"))
	return profile, nil
}

// SetExpected records the standard concentration for a metabolite.
func (d *Daemon) SetExpected(name string, concentration float64) error {
	m, err := calibration.Parse(name)
	if err != nil {
		return err
	}
	return d.engine.SetExpected(m, concentration)
}

// SetGain overrides the conversion gain for a metabolite.
func (d *Daemon) SetGain(name string, gain float64) error {
	m, err := calibration.Parse(name)
	if err != nil {
		return err
	}
	return d.engine.SetGain(m, gain)
}

// AdjustTemperature sets the collector's plate temperature.
func (d *Daemon) AdjustTemperature(ctx context.Context, celsius float64) error {
	if err := d.requireRunning(); err != nil {
		return err
	}
	return d.conn.AdjustTemperature(ctx, celsius)
}

// Needle jogs the sampling needle up or down.
func (d *Daemon) Needle(ctx context.Context, up bool) error {
	if err := d.requireRunning(); err != nil {
		return err
	}
	if up {
		return d.conn.NeedleUp(ctx)
	}
	return d.conn.NeedleDown(ctx)
}

// ListRuns returns run history, newest first.
func (d *Daemon) ListRuns(ctx context.Context, limit int) ([]runs.Run, error) {
	return d.store.List(ctx, limit)
}

// GetRun returns one run by ID.
func (d *Daemon) GetRun(ctx context.Context, id string) (runs.Run, error) {
	return d.store.GetByID(ctx, id)
}

// RunsHealth returns aggregate run history counts.
func (d *Daemon) RunsHealth(ctx context.Context) (runs.HealthSummary, error) {
	return d.store.Health(ctx)
}
