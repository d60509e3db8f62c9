package amuza

import (
	"fmt"
	"strings"

	"amuza/internal/device"
)

// Fixed command strings understood by the collector firmware.
const (
	cmdHello      = "@?\n"
	cmdQuery      = "@Q\n"
	cmdEject      = "@Y\n"
	cmdInsert     = "@Z\n"
	cmdStop       = "@T\n"
	cmdNeedleUp   = "@U01\n"
	cmdNeedleDown = "@D01\n"
)

const maxMethodSeconds = 9999

// Method pairs a list of device well numbers with a dwell time in seconds.
// The firmware visits each well in order and holds the needle there for
// the full dwell.
type Method struct {
	Wells   []int
	Seconds int
}

// Validate checks the method fits the wire encoding.
func (m Method) Validate() error {
	if len(m.Wells) == 0 {
		return device.Wrap(device.ErrValidation, "amuza", "method", "at least one well required", nil)
	}
	for _, well := range m.Wells {
		if well < 1 || well > 96 {
			return device.Wrap(device.ErrValidation, "amuza", "method", fmt.Sprintf("well number %d out of range 1-96", well), nil)
		}
	}
	if m.Seconds < 0 || m.Seconds > maxMethodSeconds {
		return device.Wrap(device.ErrValidation, "amuza", "method", fmt.Sprintf("dwell %d out of range 0-%d seconds", m.Seconds, maxMethodSeconds), nil)
	}
	return nil
}

// encode renders the method body: zero-padded dwell then each well number,
// all comma-terminated, e.g. "0090,13,".
func (m Method) encode() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%04d,", m.Seconds)
	for _, well := range m.Wells {
		fmt.Fprintf(&sb, "%02d,", well)
	}
	return sb.String()
}

// Sequence is an ordered list of methods sent as one move command.
type Sequence []Method

// Validate checks every method in the sequence.
func (s Sequence) Validate() error {
	if len(s) == 0 {
		return device.Wrap(device.ErrValidation, "amuza", "sequence", "at least one method required", nil)
	}
	for _, method := range s {
		if err := method.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Encode renders the full move command, e.g. "@P,M1,0090,13,\n\n".
func (s Sequence) Encode() string {
	var sb strings.Builder
	sb.WriteString("@P,")
	for i, method := range s {
		fmt.Fprintf(&sb, "M%d,%s", i+1, method.encode())
	}
	sb.WriteString("\n\n")
	return sb.String()
}

// TemperatureCommand encodes a plate temperature adjustment. Valid range
// is 0 to 99.9 degrees Celsius.
func TemperatureCommand(celsius float64) (string, error) {
	if celsius < 0 || celsius > 99.9 {
		return "", device.Wrap(device.ErrValidation, "amuza", "temperature", fmt.Sprintf("%.1f out of range 0-99.9", celsius), nil)
	}
	return fmt.Sprintf("@V,%.1f\n", celsius), nil
}
