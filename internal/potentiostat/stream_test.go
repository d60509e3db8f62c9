package potentiostat

import (
	"errors"
	"testing"
	"time"

	"amuza/internal/device"
	"amuza/internal/logging"
)

func TestStreamDeliversFrames(t *testing.T) {
	mock := NewMockReader(time.Millisecond)
	stream := NewStream(mock, 8, logging.NewNop())
	defer stream.Close()

	select {
	case frame, ok := <-stream.Frames():
		if !ok {
			t.Fatal("stream closed unexpectedly")
		}
		if frame.Counter == 0 {
			t.Error("frame missing counter")
		}
		if frame.Timestamp.IsZero() {
			t.Error("frame missing timestamp")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
	}
}

func TestStreamAbsorbsRecoverableFailures(t *testing.T) {
	mock := NewMockReader(time.Millisecond)
	mock.InjectFailure(device.Wrap(device.ErrFrame, "potentiostat", "read", "corrupt sensor package", nil))
	stream := NewStream(mock, 8, logging.NewNop())
	defer stream.Close()

	select {
	case _, ok := <-stream.Frames():
		if !ok {
			t.Fatal("stream closed on recoverable failure")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
	}
	if stream.Err() != nil {
		t.Errorf("Err() = %v, want nil", stream.Err())
	}
}

func TestStreamEndsOnFatalFailure(t *testing.T) {
	mock := NewMockReader(time.Millisecond)
	mock.InjectFailure(device.Wrap(device.ErrStreamFatal, "potentiostat", "read", "sensor stream dead", nil))
	stream := NewStream(mock, 8, logging.NewNop())
	defer stream.Close()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-stream.Frames():
			if !ok {
				if !errors.Is(stream.Err(), device.ErrStreamFatal) {
					t.Fatalf("Err() = %v, want fatal", stream.Err())
				}
				return
			}
		case <-deadline:
			t.Fatal("stream did not end on fatal failure")
		}
	}
}

func TestStreamDropsWhenConsumerStalls(t *testing.T) {
	mock := NewMockReader(time.Millisecond)
	stream := NewStream(mock, 1, logging.NewNop())
	defer stream.Close()

	deadline := time.Now().Add(time.Second)
	for stream.Dropped() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no frames dropped while consumer stalled")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStreamCloseEndsCleanly(t *testing.T) {
	mock := NewMockReader(time.Millisecond)
	stream := NewStream(mock, 8, logging.NewNop())

	if err := stream.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	// Drain until the pump notices shutdown.
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-stream.Frames():
			if !ok {
				if stream.Err() != nil {
					t.Errorf("Err() after close = %v, want nil", stream.Err())
				}
				return
			}
		case <-deadline:
			t.Fatal("stream did not close")
		}
	}
}
