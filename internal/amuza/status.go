package amuza

import (
	"fmt"
	"strconv"
	"strings"

	"amuza/internal/device"
)

// MachineState is the numeric state reported in "@q" frames.
type MachineState int

const (
	StateUnknown     MachineState = 0
	StateResting     MachineState = 1
	StateTrayEjected MachineState = 2
	StateMovingTray  MachineState = 5
	StateMoving      MachineState = 10
)

func (s MachineState) String() string {
	switch s {
	case StateResting:
		return "resting"
	case StateTrayEjected:
		return "tray_ejected"
	case StateMovingTray:
		return "moving_tray"
	case StateMoving:
		return "moving"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Status is a decoded "@q" status frame. The firmware reports the machine
// state, the active method number (0 when idle), and the current well and
// seconds remaining while a move is in progress.
type Status struct {
	State      MachineState
	InProgress bool
	Method     int
	Well       int
	Remaining  int
}

// ExitReport is a decoded "@E" frame carrying a firmware exit code.
type ExitReport struct {
	Code int
}

// parseStatus decodes a "@q,<state>,<method>,<well>,<remaining>" line.
func parseStatus(line string) (Status, error) {
	body := strings.TrimPrefix(strings.TrimSpace(line), "@q,")
	fields := strings.Split(body, ",")
	if len(fields) < 2 {
		return Status{}, device.Wrap(device.ErrDevice, "amuza", "status", fmt.Sprintf("short status frame %q", line), nil)
	}

	state, err := parsePadded(fields[0])
	if err != nil {
		return Status{}, device.Wrap(device.ErrDevice, "amuza", "status", fmt.Sprintf("bad state in %q", line), err)
	}
	method, err := parsePadded(fields[1])
	if err != nil {
		return Status{}, device.Wrap(device.ErrDevice, "amuza", "status", fmt.Sprintf("bad method in %q", line), err)
	}

	status := Status{
		State:      MachineState(state),
		Method:     method,
		InProgress: method != 0,
	}
	if len(fields) > 2 {
		if status.Well, err = parsePadded(fields[2]); err != nil {
			return Status{}, device.Wrap(device.ErrDevice, "amuza", "status", fmt.Sprintf("bad well in %q", line), err)
		}
	}
	if len(fields) > 3 {
		if status.Remaining, err = parsePadded(fields[3]); err != nil {
			return Status{}, device.Wrap(device.ErrDevice, "amuza", "status", fmt.Sprintf("bad remaining in %q", line), err)
		}
	}
	return status, nil
}

// parseExit decodes a "@E,<code>" line.
func parseExit(line string) (ExitReport, error) {
	body := strings.TrimPrefix(strings.TrimSpace(line), "@E,")
	code, err := parsePadded(body)
	if err != nil {
		return ExitReport{}, device.Wrap(device.ErrDevice, "amuza", "exit", fmt.Sprintf("bad exit frame %q", line), err)
	}
	return ExitReport{Code: code}, nil
}

// parsePadded reads the firmware's zero-padded decimal fields ("0013").
// An all-zero field decodes to zero.
func parsePadded(field string) (int, error) {
	trimmed := strings.TrimSpace(field)
	if trimmed == "" {
		return 0, fmt.Errorf("empty field")
	}
	return strconv.Atoi(trimmed)
}
