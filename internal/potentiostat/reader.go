package potentiostat

import (
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"

	"amuza/internal/device"
)

// Config controls how the sensor stream is opened and read.
type Config struct {
	// Port is the serial device path.
	Port string

	// BaudRate is the serial line speed.
	BaudRate int

	// ReadTimeout bounds a single read on the port. A read that
	// returns no data within the timeout counts as a frame failure.
	ReadTimeout time.Duration

	// FrameErrorThreshold is the number of consecutive frame
	// failures tolerated before the stream is declared dead.
	FrameErrorThreshold int
}

func (c Config) withDefaults() Config {
	if c.BaudRate <= 0 {
		c.BaudRate = 9600
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 2 * time.Second
	}
	if c.FrameErrorThreshold <= 0 {
		c.FrameErrorThreshold = 5
	}
	return c
}

// FrameReader produces sensor frames one at a time.
type FrameReader interface {
	// ReadNext blocks until a frame is available or the stream
	// fails. Recoverable frame failures return an error matching
	// device.ErrFrame; fatal failures match device.ErrStreamFatal
	// or device.ErrConnection.
	ReadNext() (Frame, error)

	Close() error
}

// Reader scans a byte stream for sensor packages and decodes them.
type Reader struct {
	src       io.ReadCloser
	threshold int

	buf      []byte
	counter  uint64
	failures int
	fatal    error
}

// Open connects to the potentiostat on the configured serial port.
func Open(cfg Config) (*Reader, error) {
	cfg = cfg.withDefaults()

	port, err := serial.Open(cfg.Port, &serial.Mode{BaudRate: cfg.BaudRate})
	if err != nil {
		return nil, device.Wrap(device.ErrConnection, "potentiostat", "open",
			fmt.Sprintf("opening serial port %s", cfg.Port), err)
	}
	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		port.Close()
		return nil, device.Wrap(device.ErrConnection, "potentiostat", "open",
			"setting serial read timeout", err)
	}
	return NewReader(port, cfg.FrameErrorThreshold), nil
}

// NewReader wraps an already-open byte source. The threshold is the
// number of consecutive frame failures tolerated before ReadNext
// returns a fatal error; values below one use the default of five.
func NewReader(src io.ReadCloser, threshold int) *Reader {
	if threshold < 1 {
		threshold = 5
	}
	return &Reader{src: src, threshold: threshold}
}

// ReadNext returns the next decoded frame. Corrupt or missing packages
// produce an error matching device.ErrFrame; once the configured number
// of consecutive failures is reached every subsequent call returns an
// error matching device.ErrStreamFatal.
func (r *Reader) ReadNext() (Frame, error) {
	if r.fatal != nil {
		return Frame{}, r.fatal
	}

	frame, err := r.nextFrame()
	if err != nil {
		r.failures++
		if r.failures >= r.threshold {
			r.fatal = device.Wrap(device.ErrStreamFatal, "potentiostat", "read",
				fmt.Sprintf("%d consecutive frame failures", r.failures), err)
			return Frame{}, r.fatal
		}
		return Frame{}, err
	}

	r.failures = 0
	r.counter++
	frame.Counter = r.counter
	frame.Timestamp = time.Now()
	return frame, nil
}

// nextFrame pulls bytes until one full package has been consumed,
// then validates and decodes it. A package that fails validation is
// discarded one byte at a time so resynchronization can find the next
// start sequence.
func (r *Reader) nextFrame() (Frame, error) {
	for {
		for len(r.buf) >= PackageLength {
			if validPackage(r.buf[:PackageLength]) {
				channels := decodePackage(r.buf[:PackageLength])
				r.buf = r.buf[PackageLength:]
				return Frame{Channels: channels}, nil
			}
			// Slide past the bad byte and keep scanning within
			// this package's worth of data.
			r.buf = r.buf[1:]
			if !hasStartCandidate(r.buf, PackageLength-1) {
				skip := min(len(r.buf), PackageLength-1)
				r.buf = r.buf[skip:]
				return Frame{}, device.Wrap(device.ErrFrame, "potentiostat", "read",
					"corrupt sensor package", nil)
			}
		}

		chunk := make([]byte, 64)
		n, err := r.src.Read(chunk)
		if n > 0 {
			r.buf = append(r.buf, chunk[:n]...)
			continue
		}
		if err == io.EOF {
			r.fatal = device.Wrap(device.ErrStreamFatal, "potentiostat", "read",
				"sensor stream closed", err)
			return Frame{}, r.fatal
		}
		if err != nil {
			r.fatal = device.Wrap(device.ErrConnection, "potentiostat", "read",
				"reading from sensor port", err)
			return Frame{}, r.fatal
		}
		// The serial layer signals a timeout as a zero-byte read
		// with no error.
		return Frame{}, device.Wrap(device.ErrFrame, "potentiostat", "read",
			"timed out waiting for sensor package", nil)
	}
}

// hasStartCandidate reports whether the first n bytes of buf contain a
// possible package start.
func hasStartCandidate(buf []byte, n int) bool {
	limit := min(len(buf), n)
	for i := 0; i < limit; i++ {
		if buf[i] == startByte {
			return true
		}
	}
	return false
}

func (r *Reader) Close() error {
	return r.src.Close()
}
