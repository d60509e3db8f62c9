package device

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConnection marks failures to open or keep a serial link.
	ErrConnection = errors.New("connection error")
	// ErrDevice marks commands the AMUZA did not acknowledge in time.
	// The sequence controller enters its error state on this marker.
	ErrDevice = errors.New("device error")
	// ErrFrame marks a malformed or truncated sensor frame. Recoverable:
	// the frame is dropped and the stream continues.
	ErrFrame = errors.New("frame error")
	// ErrStreamFatal marks a sensor stream that exceeded the consecutive
	// frame-failure threshold and cannot continue.
	ErrStreamFatal = errors.New("sensor stream fatal")
	// ErrCalibration marks calibration passes rejected for a zero or
	// unstable reading.
	ErrCalibration = errors.New("calibration error")
	// ErrValidation marks rejected operation inputs such as malformed
	// well selections or negative timing parameters.
	ErrValidation = errors.New("validation error")
	// ErrStorage marks local file and directory failures, such as a
	// readings session file that cannot be written. Distinct from
	// ErrDevice so disk trouble is not mistaken for an unresponsive
	// instrument.
	ErrStorage = errors.New("storage error")
)

// Wrap builds an error message that includes component context while
// tagging it with the provided marker for later classification. The marker
// should be one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrDevice
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Recoverable reports whether the error may be absorbed without aborting
// the operation that produced it.
func Recoverable(err error) bool {
	return errors.Is(err, ErrFrame)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "device failure"
	}
	return strings.Join(parts, ": ")
}
