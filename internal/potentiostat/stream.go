package potentiostat

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"amuza/internal/device"
	"amuza/internal/logging"
)

// Stream pumps frames from a FrameReader into a bounded channel.
// Recoverable frame failures are logged and absorbed; a fatal failure
// ends the stream and closes the channel.
type Stream struct {
	reader FrameReader
	logger *slog.Logger

	out     chan Frame
	dropped atomic.Uint64

	mu  sync.Mutex
	err error

	closeOnce sync.Once
	done      chan struct{}
}

// NewStream starts pumping frames from reader. The buffer bounds how
// far a slow consumer may fall behind before frames are dropped.
func NewStream(reader FrameReader, buffer int, logger *slog.Logger) *Stream {
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Stream{
		reader: reader,
		logger: logger,
		out:    make(chan Frame, buffer),
		done:   make(chan struct{}),
	}
	go s.pump()
	return s
}

// Frames returns the stream output. The channel is closed when the
// stream ends; check Err afterwards to distinguish shutdown from
// failure.
func (s *Stream) Frames() <-chan Frame {
	return s.out
}

// Err returns the fatal error that ended the stream, or nil when the
// stream was closed deliberately.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Dropped returns the number of frames discarded because the consumer
// fell behind.
func (s *Stream) Dropped() uint64 {
	return s.dropped.Load()
}

// Close stops the pump and releases the underlying reader.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.reader.Close()
	})
	return err
}

func (s *Stream) pump() {
	defer close(s.out)

	for {
		frame, err := s.reader.ReadNext()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			if device.Recoverable(err) {
				s.logger.Warn("dropping corrupt sensor frame", logging.Error(err))
				continue
			}
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
			s.logger.Error("sensor stream ended", logging.Error(err))
			return
		}

		select {
		case s.out <- frame:
		case <-s.done:
			return
		default:
			s.dropped.Add(1)
		}
	}
}
