package amuza

import (
	"fmt"
	"strings"
	"sync"
)

// MockTransport simulates the collector firmware for tests and for running
// the daemon without hardware. Every command that reaches the device is
// answered with a status frame reflecting a small tray model, mirroring
// the firmware's reply to the periodic status query.
type MockTransport struct {
	mu         sync.Mutex
	sent       []string
	lines      chan string
	state      MachineState
	moveTicks  int
	responding bool
	closed     bool
}

// NewMockTransport returns a mock link with the tray resting and replies
// enabled.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		lines:      make(chan string, 64),
		state:      StateResting,
		responding: true,
	}
}

func (t *MockTransport) Send(command string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("mock transport closed")
	}
	t.sent = append(t.sent, command)

	switch {
	case command == cmdEject:
		t.state = StateTrayEjected
	case command == cmdInsert:
		t.state = StateResting
	case command == cmdStop:
		t.state = StateResting
	case strings.HasPrefix(command, "@P,"):
		t.state = StateMoving
		t.moveTicks = 2
	}

	if t.responding {
		t.emitStatusLocked()
	}
	return nil
}

func (t *MockTransport) Lines() <-chan string {
	return t.lines
}

func (t *MockTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.lines)
	}
	return nil
}

// SetResponding controls whether commands are acknowledged. Tests disable
// replies to exercise acknowledgment timeouts.
func (t *MockTransport) SetResponding(responding bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.responding = responding
}

// SettleMoves marks any in-flight move as finished so subsequent status
// frames report the tray resting.
func (t *MockTransport) SettleMoves() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateMoving || t.state == StateMovingTray {
		t.state = StateResting
	}
}

// InjectLine delivers a raw reply line, bypassing the tray model.
func (t *MockTransport) InjectLine(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.lines <- line
}

// Sent returns a copy of every command written so far.
func (t *MockTransport) Sent() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.sent))
	copy(out, t.sent)
	return out
}

func (t *MockTransport) emitStatusLocked() {
	method := 0
	if t.state == StateMoving || t.state == StateMovingTray {
		method = 1
		// Moves settle after a couple of status polls.
		if t.moveTicks--; t.moveTicks <= 0 {
			t.state = StateResting
		}
	}
	line := fmt.Sprintf("@q,%d,%d,0000,0000", t.state, method)
	select {
	case t.lines <- line:
	default:
	}
}
