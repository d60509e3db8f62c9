package amuza

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"amuza/internal/device"
	"amuza/internal/logging"
	"amuza/internal/wellplate"
)

// Options configures a Connection.
type Options struct {
	// AckTimeout bounds how long a command waits for a fresh status frame
	// before it is declared unacknowledged.
	AckTimeout time.Duration
	// QueryInterval is the cadence of the background "@Q" status poll.
	QueryInterval time.Duration
	Logger        *slog.Logger
}

// Connection drives a collector over a Transport: it polls device status
// in the background, decodes replies, and exposes the documented tray
// operations. Commands are acknowledged by the next status frame; a
// silent device surfaces as a DeviceError.
type Connection struct {
	transport Transport
	logger    *slog.Logger

	ackTimeout    time.Duration
	queryInterval time.Duration

	mu       sync.Mutex
	status   Status
	statusCh chan struct{}

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Connect wraps a transport, performs the hello handshake, and starts the
// status poll and reception loops.
func Connect(transport Transport, opts Options) (*Connection, error) {
	if opts.AckTimeout <= 0 {
		opts.AckTimeout = 5 * time.Second
	}
	if opts.QueryInterval <= 0 {
		opts.QueryInterval = time.Second
	}

	c := &Connection{
		transport:     transport,
		logger:        logging.NewComponentLogger(opts.Logger, "amuza"),
		ackTimeout:    opts.AckTimeout,
		queryInterval: opts.QueryInterval,
		statusCh:      make(chan struct{}),
		done:          make(chan struct{}),
	}

	if err := transport.Send(cmdHello); err != nil {
		return nil, err
	}

	c.wg.Add(2)
	go c.receiveLoop()
	go c.queryLoop()

	c.logger.Info("collector link established")
	return c, nil
}

// Eject opens the tray.
func (c *Connection) Eject(ctx context.Context) error {
	return c.command(ctx, "eject", cmdEject)
}

// Insert closes the tray.
func (c *Connection) Insert(ctx context.Context) error {
	return c.command(ctx, "insert", cmdInsert)
}

// Halt aborts whatever the collector is doing.
func (c *Connection) Halt(ctx context.Context) error {
	return c.command(ctx, "halt", cmdStop)
}

// Position moves the needle to a well and holds it there for the dwell
// duration. The dwell is enforced by the firmware; the caller still owns
// its own sampling window.
func (c *Connection) Position(ctx context.Context, well wellplate.Well, dwell time.Duration) error {
	if err := well.Validate(); err != nil {
		return device.Wrap(device.ErrValidation, "amuza", "position", "", err)
	}
	seq := Sequence{{Wells: []int{well.Index()}, Seconds: int(dwell / time.Second)}}
	if err := seq.Validate(); err != nil {
		return err
	}
	c.logger.Debug("positioning needle",
		logging.String(logging.FieldWell, well.Label()),
		logging.Duration("dwell", dwell))
	return c.command(ctx, "position", seq.Encode())
}

// Move sends a full pre-built method sequence.
func (c *Connection) Move(ctx context.Context, seq Sequence) error {
	if err := seq.Validate(); err != nil {
		return err
	}
	return c.command(ctx, "move", seq.Encode())
}

// AdjustTemperature sets the plate temperature in degrees Celsius.
func (c *Connection) AdjustTemperature(ctx context.Context, celsius float64) error {
	cmd, err := TemperatureCommand(celsius)
	if err != nil {
		return err
	}
	return c.command(ctx, "temperature", cmd)
}

// NeedleUp jogs the needle up one step.
func (c *Connection) NeedleUp(ctx context.Context) error {
	return c.command(ctx, "needle_up", cmdNeedleUp)
}

// NeedleDown jogs the needle down one step.
func (c *Connection) NeedleDown(ctx context.Context) error {
	return c.command(ctx, "needle_down", cmdNeedleDown)
}

// Status returns the most recently received status frame.
func (c *Connection) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Busy reports whether the collector has a method in progress.
func (c *Connection) Busy() bool {
	return c.Status().InProgress
}

// Close stops the background loops and releases the transport. Idempotent.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.transport.Close()
		c.wg.Wait()
		c.logger.Info("collector link closed")
	})
	return err
}

func (c *Connection) command(ctx context.Context, operation, raw string) error {
	c.mu.Lock()
	waitCh := c.statusCh
	c.mu.Unlock()

	if err := c.transport.Send(raw); err != nil {
		return device.Wrap(device.ErrConnection, "amuza", operation, "send failed", err)
	}

	select {
	case <-waitCh:
		return nil
	case <-time.After(c.ackTimeout):
		return device.Wrap(device.ErrDevice, "amuza", operation, "no acknowledgment from collector", nil)
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return device.Wrap(device.ErrConnection, "amuza", operation, "connection closed", nil)
	}
}

func (c *Connection) receiveLoop() {
	defer c.wg.Done()
	for line := range c.transport.Lines() {
		c.handleLine(line)
	}
}

func (c *Connection) handleLine(line string) {
	trimmed := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(trimmed, "@q"):
		status, err := parseStatus(trimmed)
		if err != nil {
			c.logger.Warn("discarding malformed status frame", logging.Error(err))
			return
		}
		c.mu.Lock()
		c.status = status
		notify := c.statusCh
		c.statusCh = make(chan struct{})
		c.mu.Unlock()
		close(notify)
	case strings.HasPrefix(trimmed, "@E"):
		report, err := parseExit(trimmed)
		if err != nil {
			c.logger.Warn("discarding malformed exit frame", logging.Error(err))
			return
		}
		c.logger.Info("collector method finished", logging.Int("exit_code", report.Code))
	case trimmed == "":
	default:
		c.logger.Debug("unrecognized reply", logging.String("line", trimmed))
	}
}

func (c *Connection) queryLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.queryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.transport.Send(cmdQuery); err != nil {
				c.logger.Warn("status query failed", logging.Error(err))
			}
		}
	}
}
