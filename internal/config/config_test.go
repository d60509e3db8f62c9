package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"amuza/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	cfg.Amuza.Mock = true
	cfg.Potentiostat.Mock = true
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
readings_dir = "` + filepath.Join(dir, "readings") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"
socket_path = "` + filepath.Join(dir, "amuzad.sock") + `"

[amuza]
port = "/dev/rfcomm3"

[sampling]
t_sampling = 120
t_buffer = 30

[potentiostat]
mock = true

[calibration.expected]
glucose = 100.0
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved == "" {
		t.Fatalf("expected resolved existing path, got %q exists=%v", resolved, exists)
	}
	if cfg.Amuza.Port != "/dev/rfcomm3" {
		t.Fatalf("amuza port = %q", cfg.Amuza.Port)
	}
	if cfg.Sampling.SamplingSeconds != 120 || cfg.Sampling.BufferSeconds != 30 {
		t.Fatalf("sampling windows = %+v", cfg.Sampling)
	}
	if cfg.Calibration.Expected["glucose"] != 100.0 {
		t.Fatalf("expected concentration = %v", cfg.Calibration.Expected)
	}
	// Defaults survive partial files.
	if cfg.Potentiostat.FrameErrorThreshold != 5 {
		t.Fatalf("frame error threshold = %d", cfg.Potentiostat.FrameErrorThreshold)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"negative sampling", func(c *config.Config) { c.Sampling.SamplingSeconds = -1 }, "t_sampling"},
		{"oversized buffer", func(c *config.Config) { c.Sampling.BufferSeconds = 10000 }, "t_buffer"},
		{"unknown metabolite", func(c *config.Config) { c.Calibration.Expected["caffeine"] = 1 }, "unknown metabolite"},
		{"zero threshold", func(c *config.Config) { c.Potentiostat.FrameErrorThreshold = 0 }, "frame_error_threshold"},
		{"missing port", func(c *config.Config) { c.Amuza.Mock = false; c.Amuza.Port = "" }, "amuza.port"},
		{"bad log level", func(c *config.Config) { c.Logging.Level = "verbose" }, "logging.level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Amuza.Mock = true
			cfg.Potentiostat.Mock = true
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected error writing over existing config")
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if cfg.Sampling.SamplingSeconds != 90 || cfg.Sampling.BufferSeconds != 60 {
		t.Fatalf("sample config sampling windows = %+v", cfg.Sampling)
	}
}
