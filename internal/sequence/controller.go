package sequence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"amuza/internal/device"
	"amuza/internal/logging"
	"amuza/internal/wellplate"
)

// Phase is the controller's position in the tray lifecycle.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseEjected   Phase = "ejected"
	PhaseInserted  Phase = "inserted"
	PhaseSampling  Phase = "sampling"
	PhaseBuffering Phase = "buffering"
	PhaseError     Phase = "error"
)

// Params holds the per-well timing windows.
type Params struct {
	Sampling time.Duration
	Buffer   time.Duration
}

// Validate rejects negative or un-encodable windows.
func (p Params) Validate() error {
	if p.Sampling < 0 {
		return device.Wrap(device.ErrValidation, "sequence", "params", "t_sampling must be non-negative", nil)
	}
	if p.Buffer < 0 {
		return device.Wrap(device.ErrValidation, "sequence", "params", "t_buffer must be non-negative", nil)
	}
	if p.Sampling > 9999*time.Second {
		return device.Wrap(device.ErrValidation, "sequence", "params", "t_sampling exceeds device limit", nil)
	}
	return nil
}

// RunState is the externally visible controller state. HasWell is true
// while a run is positioned at a well; Position counts from 1 within the
// active selection.
type RunState struct {
	Phase    Phase
	Well     wellplate.Well
	HasWell  bool
	Position int
	Total    int
}

// Device is the collector surface the controller needs. *amuza.Connection
// satisfies it; tests use a fake.
type Device interface {
	Eject(ctx context.Context) error
	Insert(ctx context.Context) error
	Position(ctx context.Context, well wellplate.Well, dwell time.Duration) error
	Halt(ctx context.Context) error
}

// Observer receives every state transition. Observers must not block.
type Observer func(RunState)

// Controller owns the tray state machine. State mutates only through its
// operation methods, which never run concurrently with each other; Stop
// is the one call safe to make while an operation is in flight.
type Controller struct {
	dev    Device
	logger *slog.Logger

	mu        sync.Mutex
	state     RunState
	busy      bool
	stopCh    chan struct{}
	stopped   bool
	observers []Observer
}

// New builds a controller in the idle phase.
func New(dev Device, logger *slog.Logger) *Controller {
	return &Controller{
		dev:    dev,
		logger: logging.NewComponentLogger(logger, "sequence"),
		state:  RunState{Phase: PhaseIdle},
	}
}

// Subscribe registers an observer for state transitions.
func (c *Controller) Subscribe(observer Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, observer)
}

// State returns the current run state.
func (c *Controller) State() RunState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Eject opens the tray. Valid from the idle or inserted phases.
func (c *Controller) Eject(ctx context.Context) error {
	release, err := c.begin("eject", PhaseIdle, PhaseInserted)
	if err != nil {
		return err
	}
	defer release()

	if err := c.dev.Eject(ctx); err != nil {
		c.fail("eject", err)
		return err
	}
	c.transition(RunState{Phase: PhaseEjected})
	return nil
}

// Insert closes the tray. Valid from the ejected phase.
func (c *Controller) Insert(ctx context.Context) error {
	release, err := c.begin("insert", PhaseEjected)
	if err != nil {
		return err
	}
	defer release()

	if err := c.dev.Insert(ctx); err != nil {
		c.fail("insert", err)
		return err
	}
	c.transition(RunState{Phase: PhaseInserted})
	return nil
}

// RunPlate samples a contiguous well range in order, visiting each well
// exactly once. Requires the tray inserted. An empty selection succeeds
// without touching the device.
func (c *Controller) RunPlate(ctx context.Context, selection wellplate.Selection, params Params) error {
	if len(selection) == 0 {
		return nil
	}
	if err := selection.Validate(); err != nil {
		return device.Wrap(device.ErrValidation, "sequence", "runplate", "", err)
	}
	if !selection.Contiguous() {
		return device.Wrap(device.ErrValidation, "sequence", "runplate", "selection must be a contiguous well range", nil)
	}
	if !selection.Unique() {
		return device.Wrap(device.ErrValidation, "sequence", "runplate", "selection must not repeat wells", nil)
	}
	return c.run(ctx, "runplate", selection, params)
}

// Move samples an explicit ordered well list. Order is honored exactly;
// wells listed more than once are sampled once per occurrence. Requires
// the tray inserted.
func (c *Controller) Move(ctx context.Context, selection wellplate.Selection, params Params) error {
	if len(selection) == 0 {
		return nil
	}
	if err := selection.Validate(); err != nil {
		return device.Wrap(device.ErrValidation, "sequence", "move", "", err)
	}
	return c.run(ctx, "move", selection, params)
}

// Stop halts further well advancement after the in-flight device command
// completes and returns the controller to idle. Wells already in progress
// are not rolled back. No-op when already idle.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Phase == PhaseIdle && !c.busy {
		c.mu.Unlock()
		return nil
	}
	runActive := c.busy
	// stopCh only exists while a sampling run is looping over wells. A busy
	// tray command has no loop to interrupt; halting the device is enough.
	if runActive && c.stopCh != nil && !c.stopped {
		c.stopped = true
		close(c.stopCh)
	}
	c.mu.Unlock()

	c.logger.Info("stop requested")
	if err := c.dev.Halt(ctx); err != nil {
		c.logger.Warn("device halt failed", logging.Error(err))
	}
	if !runActive {
		// No run loop to unwind the state; settle to idle directly.
		c.transition(RunState{Phase: PhaseIdle})
	}
	return nil
}

func (c *Controller) run(ctx context.Context, operation string, selection wellplate.Selection, params Params) error {
	if err := params.Validate(); err != nil {
		return err
	}
	release, err := c.begin(operation, PhaseInserted)
	if err != nil {
		return err
	}
	defer release()

	c.mu.Lock()
	c.stopCh = make(chan struct{})
	c.stopped = false
	stop := c.stopCh
	c.mu.Unlock()

	total := len(selection)
	c.logger.Info("run started",
		logging.String("operation", operation),
		logging.String("selection", selection.String()),
		logging.Duration("t_sampling", params.Sampling),
		logging.Duration("t_buffer", params.Buffer))

	for i, well := range selection {
		if stopRequested(stop) {
			break
		}

		if err := c.dev.Position(ctx, well, params.Sampling); err != nil {
			c.fail(operation, err)
			return device.Wrap(device.ErrDevice, "sequence", operation, fmt.Sprintf("position well %s", well.Label()), err)
		}

		c.transition(RunState{Phase: PhaseSampling, Well: well, HasWell: true, Position: i + 1, Total: total})
		interrupted, err := c.wait(ctx, params.Sampling, stop)
		if err != nil {
			c.transition(RunState{Phase: PhaseIdle})
			return err
		}
		if interrupted {
			break
		}

		if i == total-1 {
			break
		}

		c.transition(RunState{Phase: PhaseBuffering, Well: well, HasWell: true, Position: i + 1, Total: total})
		interrupted, err = c.wait(ctx, params.Buffer, stop)
		if err != nil {
			c.transition(RunState{Phase: PhaseIdle})
			return err
		}
		if interrupted {
			break
		}
	}

	c.transition(RunState{Phase: PhaseIdle})
	c.logger.Info("run finished", logging.String("operation", operation))
	return nil
}

// begin guards an operation: it rejects concurrent operations and wrong
// starting phases, and returns the release function for the busy flag.
func (c *Controller) begin(operation string, allowed ...Phase) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return nil, device.Wrap(device.ErrValidation, "sequence", operation, "another operation is in progress", nil)
	}
	if len(allowed) > 0 && !phaseAllowed(c.state.Phase, allowed) {
		return nil, device.Wrap(device.ErrValidation, "sequence", operation,
			fmt.Sprintf("not valid from phase %q", c.state.Phase), nil)
	}
	c.busy = true
	return func() {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
	}, nil
}

func phaseAllowed(current Phase, allowed []Phase) bool {
	for _, phase := range allowed {
		if current == phase {
			return true
		}
	}
	return false
}

// fail records a device failure. Only device errors park the controller
// in the error phase; validation problems leave the phase untouched.
func (c *Controller) fail(operation string, err error) {
	if errors.Is(err, device.ErrValidation) {
		return
	}
	c.logger.Error("device command failed",
		logging.String("operation", operation),
		logging.Error(err))
	c.transition(RunState{Phase: PhaseError})
}

func (c *Controller) transition(state RunState) {
	c.mu.Lock()
	c.state = state
	observers := make([]Observer, len(c.observers))
	copy(observers, c.observers)
	c.mu.Unlock()

	attrs := []logging.Attr{logging.String(logging.FieldPhase, string(state.Phase))}
	if state.HasWell {
		attrs = append(attrs,
			logging.String(logging.FieldWell, state.Well.Label()),
			logging.Int("position", state.Position),
			logging.Int("total", state.Total))
	}
	c.logger.Debug("phase transition", logging.Args(attrs...)...)

	for _, observer := range observers {
		observer(state)
	}
}

func (c *Controller) wait(ctx context.Context, duration time.Duration, stop <-chan struct{}) (bool, error) {
	if duration <= 0 {
		return stopRequested(stop), nil
	}
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-timer.C:
		return false, nil
	case <-stop:
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func stopRequested(stop <-chan struct{}) bool {
	select {
	case <-stop:
		return true
	default:
		return false
	}
}
