package daemon

import (
	"context"
	"strings"
	"testing"
	"time"

	"amuza/internal/logging"
	"amuza/internal/runs"
	"amuza/internal/testsupport"
)

func newTestDaemon(t *testing.T, opts ...testsupport.ConfigOption) *Daemon {
	t.Helper()

	opts = append([]testsupport.ConfigOption{testsupport.WithSampling(0, 0)}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Amuza.QueryIntervalMS = 10
	cfg.Amuza.AckTimeoutSeconds = 2

	store := testsupport.MustOpenStore(t, cfg)
	d, err := New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func startTestDaemon(t *testing.T, opts ...testsupport.ConfigOption) *Daemon {
	t.Helper()

	d := newTestDaemon(t, opts...)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)
	return d
}

func waitForRunStatus(t *testing.T, d *Daemon, id string, want runs.Status) runs.Run {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for {
		run, err := d.GetRun(context.Background(), id)
		if err != nil {
			t.Fatalf("GetRun: %v", err)
		}
		if run.Status == want {
			return run
		}
		if run.Status.IsTerminal() {
			t.Fatalf("run ended with status %s (%s), want %s", run.Status, run.ErrorMessage, want)
		}
		if time.Now().After(deadline) {
			t.Fatalf("run stuck in status %s, want %s", run.Status, want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDaemonLifecycle(t *testing.T) {
	d := newTestDaemon(t)
	ctx := context.Background()

	if d.Running() {
		t.Fatal("daemon running before Start")
	}
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !d.Running() {
		t.Fatal("daemon not running after Start")
	}
	if err := d.Start(ctx); err == nil {
		t.Error("second Start succeeded")
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Error("Status.Running = false")
	}
	if status.Phase != "idle" {
		t.Errorf("Status.Phase = %q, want idle", status.Phase)
	}
	if len(status.Profiles) != 4 {
		t.Errorf("Status.Profiles has %d entries, want 4", len(status.Profiles))
	}

	d.Stop()
	if d.Running() {
		t.Error("daemon running after Stop")
	}
}

func TestSecondInstanceRejected(t *testing.T) {
	first := newTestDaemon(t)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer first.Stop()

	second, err := New(first.cfg, first.store, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = second.Start(context.Background())
	if err == nil {
		second.Stop()
		t.Fatal("second instance started")
	}
	if !strings.Contains(err.Error(), "already running") {
		t.Errorf("error = %v", err)
	}
}

func TestRunPlateCompletes(t *testing.T) {
	d := startTestDaemon(t)
	ctx := context.Background()

	if err := d.Eject(ctx); err != nil {
		t.Fatalf("Eject: %v", err)
	}
	if err := d.Insert(ctx); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	id, err := d.RunPlate(ctx, "A1:C1", 0, 0)
	if err != nil {
		t.Fatalf("RunPlate: %v", err)
	}

	run := waitForRunStatus(t, d, id, runs.StatusCompleted)
	if run.Kind != runs.KindRunPlate {
		t.Errorf("Kind = %s", run.Kind)
	}
	if run.Wells != "A1,B1,C1" {
		t.Errorf("Wells = %q", run.Wells)
	}
}

func TestRunPlateRejectsNonContiguous(t *testing.T) {
	d := startTestDaemon(t)
	ctx := context.Background()

	if err := d.Eject(ctx); err != nil {
		t.Fatalf("Eject: %v", err)
	}
	if err := d.Insert(ctx); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if _, err := d.RunPlate(ctx, "A1,C5", 0, 0); err == nil {
		t.Fatal("RunPlate accepted a non-contiguous selection")
	}
}

func TestMoveHonorsRepeats(t *testing.T) {
	d := startTestDaemon(t)
	ctx := context.Background()

	if err := d.Eject(ctx); err != nil {
		t.Fatalf("Eject: %v", err)
	}
	if err := d.Insert(ctx); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	id, err := d.Move(ctx, "C5,A1,C5", 0, 0)
	if err != nil {
		t.Fatalf("Move: %v", err)
	}

	run := waitForRunStatus(t, d, id, runs.StatusCompleted)
	if run.Kind != runs.KindMove {
		t.Errorf("Kind = %s", run.Kind)
	}
	if run.Wells != "C5,A1,C5" {
		t.Errorf("Wells = %q", run.Wells)
	}
}

func TestStopRunMarksStopped(t *testing.T) {
	d := startTestDaemon(t)
	ctx := context.Background()

	if err := d.Eject(ctx); err != nil {
		t.Fatalf("Eject: %v", err)
	}
	if err := d.Insert(ctx); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	// A long sampling window keeps the run in flight until Stop.
	id, err := d.RunPlate(ctx, "A1:H1", 30, 30)
	if err != nil {
		t.Fatalf("RunPlate: %v", err)
	}
	waitForRunStatus(t, d, id, runs.StatusRunning)
	deadline := time.Now().Add(5 * time.Second)
	for d.Status(ctx).Phase != "sampling" {
		if time.Now().After(deadline) {
			t.Fatal("run never reached the sampling phase")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := d.StopRun(ctx); err != nil {
		t.Fatalf("StopRun: %v", err)
	}
	run := waitForRunStatus(t, d, id, runs.StatusStopped)
	if run.ErrorMessage != runs.StopReason {
		t.Errorf("ErrorMessage = %q", run.ErrorMessage)
	}

	status := d.Status(ctx)
	if status.Phase != "idle" {
		t.Errorf("phase after stop = %q, want idle", status.Phase)
	}
}

func TestCalibrationConfigurationOps(t *testing.T) {
	d := startTestDaemon(t)

	if err := d.SetExpected("glucose", 2.5); err != nil {
		t.Errorf("SetExpected: %v", err)
	}
	if err := d.SetExpected("caffeine", 1.0); err == nil {
		t.Error("SetExpected accepted unknown metabolite")
	}
	if err := d.SetGain("lactate", 0.1); err != nil {
		t.Errorf("SetGain: %v", err)
	}
	if _, err := d.Calibrate("glucose"); err == nil {
		t.Error("Calibrate succeeded without a full signal window")
	}
}

func TestTemperatureAndNeedle(t *testing.T) {
	d := startTestDaemon(t)
	ctx := context.Background()

	if err := d.AdjustTemperature(ctx, 37.0); err != nil {
		t.Errorf("AdjustTemperature: %v", err)
	}
	if err := d.AdjustTemperature(ctx, 120.0); err == nil {
		t.Error("AdjustTemperature accepted out-of-range value")
	}
	if err := d.Needle(ctx, true); err != nil {
		t.Errorf("Needle up: %v", err)
	}
	if err := d.Needle(ctx, false); err != nil {
		t.Errorf("Needle down: %v", err)
	}
}

func TestOpsRequireRunningDaemon(t *testing.T) {
	d := newTestDaemon(t)
	ctx := context.Background()

	if err := d.Eject(ctx); err == nil {
		t.Error("Eject succeeded on stopped daemon")
	}
	if _, err := d.RunPlate(ctx, "A1", 0, 0); err == nil {
		t.Error("RunPlate succeeded on stopped daemon")
	}
	if err := d.StopRun(ctx); err == nil {
		t.Error("StopRun succeeded on stopped daemon")
	}
}
