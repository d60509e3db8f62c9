package testsupport

import (
	"path/filepath"
	"testing"

	"amuza/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per
// test. Both device links run in mock mode so tests never touch serial
// hardware.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.ReadingsDir = filepath.Join(base, "readings")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.SocketPath = filepath.Join(base, "amuzad.sock")
	cfg.Amuza.Mock = true
	cfg.Potentiostat.Mock = true

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithSampling overrides the sampling and buffer durations, in seconds.
func WithSampling(sampling, buffer int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Sampling.SamplingSeconds = sampling
		cfg.Sampling.BufferSeconds = buffer
	}
}

// WithMQTT enables MQTT publishing against the given broker.
func WithMQTT(server, topic string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.MQTT.Enabled = true
		cfg.MQTT.Server = server
		cfg.MQTT.Topic = topic
	}
}
