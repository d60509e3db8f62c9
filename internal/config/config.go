package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and socket configuration.
type Paths struct {
	ReadingsDir string `toml:"readings_dir"`
	LogDir      string `toml:"log_dir"`
	SocketPath  string `toml:"socket_path"`
}

// Amuza contains the AMUZA fraction collector link settings.
type Amuza struct {
	Port              string `toml:"port"`
	BaudRate          int    `toml:"baud_rate"`
	AckTimeoutSeconds int    `toml:"ack_timeout_seconds"`
	QueryIntervalMS   int    `toml:"query_interval_ms"`
	Mock              bool   `toml:"mock"`
}

// Potentiostat contains the sensor serial stream settings.
type Potentiostat struct {
	Port                string `toml:"port"`
	BaudRate            int    `toml:"baud_rate"`
	ReadTimeoutMS       int    `toml:"read_timeout_ms"`
	FrameErrorThreshold int    `toml:"frame_error_threshold"`
	StreamBuffer        int    `toml:"stream_buffer"`
	Mock                bool   `toml:"mock"`
}

// Sampling contains the per-well timing windows in seconds.
type Sampling struct {
	SamplingSeconds int `toml:"t_sampling"`
	BufferSeconds   int `toml:"t_buffer"`
}

// Calibration contains expected concentrations, manual gain overrides,
// and the reading-stability criteria for calibration passes.
type Calibration struct {
	Expected           map[string]float64 `toml:"expected"`
	GainOverrides      map[string]float64 `toml:"gain_overrides"`
	StabilityWindow    int                `toml:"stability_window"`
	StabilityThreshold float64            `toml:"stability_threshold"`
}

// MQTT contains the optional MQTT sample publisher settings.
type MQTT struct {
	Enabled  bool   `toml:"enabled"`
	Server   string `toml:"server"`
	ClientID string `toml:"client_id"`
	Topic    string `toml:"topic"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the sampling
// controller.
//
// Configuration sections by subsystem:
//   - Paths: readings/log directories and the IPC socket
//   - Amuza: fraction collector serial link
//   - Potentiostat: sensor stream serial link and frame tolerances
//   - Sampling: t_sampling / t_buffer windows
//   - Calibration: expected concentrations and stability criteria
//   - MQTT: optional calibrated-sample publisher
//   - Logging: log format and level
type Config struct {
	Paths        Paths        `toml:"paths"`
	Amuza        Amuza        `toml:"amuza"`
	Potentiostat Potentiostat `toml:"potentiostat"`
	Sampling     Sampling     `toml:"sampling"`
	Calibration  Calibration  `toml:"calibration"`
	MQTT         MQTT         `toml:"mqtt"`
	Logging      Logging      `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/amuza/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("amuza.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ReadingsDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if socketDir := filepath.Dir(c.Paths.SocketPath); socketDir != "." && socketDir != "" {
		if err := os.MkdirAll(socketDir, 0o755); err != nil {
			return fmt.Errorf("create socket directory %q: %w", socketDir, err)
		}
	}
	return nil
}

// WriteSample writes the embedded sample configuration to the given path,
// refusing to overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// ExpandPath resolves "~" prefixes and returns an absolute cleaned path.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
