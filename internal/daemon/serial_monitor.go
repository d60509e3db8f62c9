package daemon

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"amuza/internal/config"
	"amuza/internal/logging"
)

// serialMonitor listens for udev netlink events on the tty subsystem so
// an unplugged USB serial adapter is visible in the logs immediately
// instead of surfacing as a timeout mid-run.
type serialMonitor struct {
	logger  *slog.Logger
	watched map[string]struct{}

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// newSerialMonitor watches the configured serial ports. Returns nil
// when both device links are mocked.
func newSerialMonitor(cfg *config.Config, logger *slog.Logger) *serialMonitor {
	if cfg == nil {
		return nil
	}

	watched := make(map[string]struct{})
	if !cfg.Amuza.Mock && cfg.Amuza.Port != "" {
		watched[cfg.Amuza.Port] = struct{}{}
	}
	if !cfg.Potentiostat.Mock && cfg.Potentiostat.Port != "" {
		watched[cfg.Potentiostat.Port] = struct{}{}
	}
	if len(watched) == 0 {
		return nil
	}

	return &serialMonitor{
		logger:  logging.NewComponentLogger(logger, "serial-monitor"),
		watched: watched,
	}
}

// Start begins listening for udev netlink events.
func (m *serialMonitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("failed to connect to netlink socket, serial hotplug events unavailable",
			logging.Error(err))
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.monitorLoop(ctx, quit)

	m.logger.Info("serial hotplug monitor started",
		logging.String("devices", strings.Join(m.devices(), ",")))
	return nil
}

// Stop shuts down the monitor.
func (m *serialMonitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false
}

// Running reports whether the monitor is active.
func (m *serialMonitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *serialMonitor) devices() []string {
	out := make([]string, 0, len(m.watched))
	for dev := range m.watched {
		out = append(out, dev)
	}
	return out
}

func (m *serialMonitor) monitorLoop(ctx context.Context, quit <-chan struct{}) {
	events := make(chan netlink.UEvent)
	errs := make(chan error)

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(events, errs, buildTTYMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-events:
			m.handleEvent(uevent)
		case err := <-errs:
			m.logger.Warn("netlink monitor error", logging.Error(err))
		}
	}
}

// buildTTYMatcher matches add and remove events on the tty subsystem.
func buildTTYMatcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "tty",
		},
	})
	return rules
}

func (m *serialMonitor) handleEvent(uevent netlink.UEvent) {
	devname := extractDeviceName(uevent)
	if devname == "" {
		return
	}
	if _, ok := m.watched[devname]; !ok {
		return
	}

	switch uevent.Action {
	case netlink.ADD:
		m.logger.Info("serial device attached",
			logging.String("device", devname),
			logging.String(logging.FieldEventType, "serial_attached"))
	case netlink.REMOVE:
		m.logger.Warn("serial device detached",
			logging.String("device", devname),
			logging.String(logging.FieldEventType, "serial_detached"))
	}
}

// extractDeviceName gets the device path from a uevent.
func extractDeviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		if !strings.HasPrefix(devname, "/dev/") {
			return "/dev/" + devname
		}
		return devname
	}

	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	if len(parts) == 0 {
		return ""
	}
	return "/dev/" + parts[len(parts)-1]
}
