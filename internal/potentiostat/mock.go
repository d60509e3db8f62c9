package potentiostat

import (
	"math/rand"
	"sync"
	"time"

	"amuza/internal/device"
)

// MockReader produces synthetic sensor frames without hardware. Each
// channel wanders around a base value with a little noise so downstream
// consumers see realistic variation.
type MockReader struct {
	interval time.Duration
	base     [ChannelCount]float64
	jitter   float64
	rng      *rand.Rand

	mu       sync.Mutex
	failures []error
	counter  uint64
	closed   bool
}

// NewMockReader returns a reader emitting one frame per interval.
func NewMockReader(interval time.Duration) *MockReader {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &MockReader{
		interval: interval,
		base:     [ChannelCount]float64{1.2, 0.8, 2.1, 1.5, 3.0, 1.9, 37.0},
		jitter:   0.02,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetBase overrides the resting value for one channel.
func (m *MockReader) SetBase(channel int, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if channel >= 0 && channel < ChannelCount {
		m.base[channel] = value
	}
}

// InjectFailure queues an error to be returned by an upcoming ReadNext
// call in place of a frame.
func (m *MockReader) InjectFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, err)
}

func (m *MockReader) ReadNext() (Frame, error) {
	time.Sleep(m.interval)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Frame{}, device.Wrap(device.ErrStreamFatal, "potentiostat", "read",
			"mock sensor closed", nil)
	}
	if len(m.failures) > 0 {
		err := m.failures[0]
		m.failures = m.failures[1:]
		return Frame{}, err
	}

	m.counter++
	frame := Frame{Timestamp: time.Now(), Counter: m.counter}
	for i, base := range m.base {
		frame.Channels[i] = base + (m.rng.Float64()*2-1)*m.jitter
	}
	return frame, nil
}

func (m *MockReader) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
