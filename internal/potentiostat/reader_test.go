package potentiostat

import (
	"errors"
	"math"
	"sync"
	"testing"

	"amuza/internal/device"
)

// scriptSource replays a sequence of reads. A nil chunk models a serial
// read timeout (zero bytes, no error).
type scriptSource struct {
	mu     sync.Mutex
	chunks [][]byte
	closed bool
}

func (s *scriptSource) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.chunks) == 0 {
		return 0, nil
	}
	chunk := s.chunks[0]
	s.chunks = s.chunks[1:]
	n := copy(p, chunk)
	return n, nil
}

func (s *scriptSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func packageFor(words [payloadWords]int16) []byte {
	block := encodePackage(words)
	return block[:]
}

func TestReadNextDecodesChannels(t *testing.T) {
	words := [payloadWords]int16{32767, -32767, 16384, 0, 100, -100, 592, 0, 0}
	src := &scriptSource{chunks: [][]byte{packageFor(words)}}
	r := NewReader(src, 5)

	frame, err := r.ReadNext()
	if err != nil {
		t.Fatalf("ReadNext() error = %v", err)
	}
	if frame.Counter != 1 {
		t.Errorf("Counter = %d, want 1", frame.Counter)
	}
	if got := frame.Channels[0]; math.Abs(got-50.0) > 1e-9 {
		t.Errorf("channel 1 = %v, want 50", got)
	}
	if got := frame.Channels[1]; math.Abs(got+50.0) > 1e-9 {
		t.Errorf("channel 2 = %v, want -50", got)
	}
	if got := frame.Temperature(); math.Abs(got-37.0) > 1e-9 {
		t.Errorf("temperature = %v, want 37", got)
	}
}

func TestReadNextResynchronizesAfterGarbage(t *testing.T) {
	words := [payloadWords]int16{100, 200, 300, 400, 500, 600, 560, 0, 0}
	data := append([]byte{0x00, 0xFF, 0x42}, packageFor(words)...)
	src := &scriptSource{chunks: [][]byte{data}}
	r := NewReader(src, 5)

	frame, err := r.ReadNext()
	if err != nil {
		t.Fatalf("ReadNext() error = %v", err)
	}
	if got := frame.Channels[2]; math.Abs(got-float64(300)*conversionGain) > 1e-9 {
		t.Errorf("channel 3 = %v", got)
	}
}

func TestReadNextRejectsBadChecksum(t *testing.T) {
	words := [payloadWords]int16{1, 2, 3, 4, 5, 6, 7, 0, 0}
	block := packageFor(words)
	block[PackageLength-2] ^= 0xFF
	src := &scriptSource{chunks: [][]byte{block}}
	r := NewReader(src, 5)

	_, err := r.ReadNext()
	if !errors.Is(err, device.ErrFrame) {
		t.Fatalf("ReadNext() error = %v, want frame failure", err)
	}
}

func TestReadNextTimeoutCountsAsFrameFailure(t *testing.T) {
	src := &scriptSource{}
	r := NewReader(src, 5)

	_, err := r.ReadNext()
	if !errors.Is(err, device.ErrFrame) {
		t.Fatalf("ReadNext() error = %v, want frame failure", err)
	}
}

func TestReadNextRecoversBelowThreshold(t *testing.T) {
	words := [payloadWords]int16{10, 20, 30, 40, 50, 60, 500, 0, 0}
	src := &scriptSource{chunks: [][]byte{nil, nil, nil, nil, packageFor(words)}}
	r := NewReader(src, 5)

	for i := 0; i < 4; i++ {
		_, err := r.ReadNext()
		if !errors.Is(err, device.ErrFrame) {
			t.Fatalf("failure %d: error = %v, want frame failure", i+1, err)
		}
		if errors.Is(err, device.ErrStreamFatal) {
			t.Fatalf("failure %d escalated too early", i+1)
		}
	}

	frame, err := r.ReadNext()
	if err != nil {
		t.Fatalf("ReadNext() after recovery error = %v", err)
	}
	if frame.Counter != 1 {
		t.Errorf("Counter = %d, want 1", frame.Counter)
	}
}

func TestReadNextEscalatesAtThreshold(t *testing.T) {
	src := &scriptSource{}
	r := NewReader(src, 5)

	var err error
	for i := 0; i < 5; i++ {
		_, err = r.ReadNext()
	}
	if !errors.Is(err, device.ErrStreamFatal) {
		t.Fatalf("fifth failure error = %v, want fatal", err)
	}

	// The stream stays dead afterwards.
	_, err = r.ReadNext()
	if !errors.Is(err, device.ErrStreamFatal) {
		t.Fatalf("post-fatal error = %v, want fatal", err)
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	words := [payloadWords]int16{1, 1, 1, 1, 1, 1, 1, 0, 0}
	src := &scriptSource{chunks: [][]byte{
		nil, nil, nil, nil,
		packageFor(words),
		nil, nil, nil, nil,
		packageFor(words),
	}}
	r := NewReader(src, 5)

	for i := 0; i < 4; i++ {
		if _, err := r.ReadNext(); !errors.Is(err, device.ErrFrame) {
			t.Fatalf("first run failure %d: %v", i+1, err)
		}
	}
	if _, err := r.ReadNext(); err != nil {
		t.Fatalf("first recovery: %v", err)
	}
	for i := 0; i < 4; i++ {
		if _, err := r.ReadNext(); errors.Is(err, device.ErrStreamFatal) {
			t.Fatalf("second run failure %d escalated, counter not reset", i+1)
		}
	}
	if _, err := r.ReadNext(); err != nil {
		t.Fatalf("second recovery: %v", err)
	}
}
