package config

import (
	"errors"
	"fmt"
	"strings"
)

var knownMetabolites = map[string]struct{}{
	"glutamate": {},
	"glutamine": {},
	"glucose":   {},
	"lactate":   {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAmuza(); err != nil {
		return err
	}
	if err := c.validatePotentiostat(); err != nil {
		return err
	}
	if err := c.validateSampling(); err != nil {
		return err
	}
	if err := c.validateCalibration(); err != nil {
		return err
	}
	if err := c.validateMQTT(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateAmuza() error {
	if !c.Amuza.Mock && c.Amuza.Port == "" {
		return errors.New("amuza.port must be set (or enable amuza.mock)")
	}
	if c.Amuza.BaudRate <= 0 {
		return errors.New("amuza.baud_rate must be positive")
	}
	if c.Amuza.AckTimeoutSeconds <= 0 {
		return errors.New("amuza.ack_timeout_seconds must be positive")
	}
	if c.Amuza.QueryIntervalMS <= 0 {
		return errors.New("amuza.query_interval_ms must be positive")
	}
	return nil
}

func (c *Config) validatePotentiostat() error {
	if !c.Potentiostat.Mock && c.Potentiostat.Port == "" {
		return errors.New("potentiostat.port must be set (or enable potentiostat.mock)")
	}
	if c.Potentiostat.BaudRate <= 0 {
		return errors.New("potentiostat.baud_rate must be positive")
	}
	if c.Potentiostat.ReadTimeoutMS <= 0 {
		return errors.New("potentiostat.read_timeout_ms must be positive")
	}
	if c.Potentiostat.FrameErrorThreshold < 1 {
		return errors.New("potentiostat.frame_error_threshold must be at least 1")
	}
	if c.Potentiostat.StreamBuffer < 1 {
		return errors.New("potentiostat.stream_buffer must be at least 1")
	}
	return nil
}

func (c *Config) validateSampling() error {
	if c.Sampling.SamplingSeconds < 0 {
		return errors.New("sampling.t_sampling must be non-negative")
	}
	if c.Sampling.BufferSeconds < 0 {
		return errors.New("sampling.t_buffer must be non-negative")
	}
	// The device encodes dwell times as four digits.
	if c.Sampling.SamplingSeconds > 9999 {
		return errors.New("sampling.t_sampling must be at most 9999 seconds")
	}
	if c.Sampling.BufferSeconds > 9999 {
		return errors.New("sampling.t_buffer must be at most 9999 seconds")
	}
	return nil
}

func (c *Config) validateCalibration() error {
	for name, value := range c.Calibration.Expected {
		if _, ok := knownMetabolites[strings.ToLower(name)]; !ok {
			return fmt.Errorf("calibration.expected: unknown metabolite %q", name)
		}
		if value < 0 {
			return fmt.Errorf("calibration.expected.%s must be non-negative", name)
		}
	}
	for name, value := range c.Calibration.GainOverrides {
		if _, ok := knownMetabolites[strings.ToLower(name)]; !ok {
			return fmt.Errorf("calibration.gain_overrides: unknown metabolite %q", name)
		}
		if value <= 0 {
			return fmt.Errorf("calibration.gain_overrides.%s must be positive", name)
		}
	}
	if c.Calibration.StabilityWindow < 2 {
		return errors.New("calibration.stability_window must be at least 2")
	}
	if c.Calibration.StabilityThreshold <= 0 {
		return errors.New("calibration.stability_threshold must be positive")
	}
	return nil
}

func (c *Config) validateMQTT() error {
	if !c.MQTT.Enabled {
		return nil
	}
	if c.MQTT.Server == "" {
		return errors.New("mqtt.server must be set when mqtt.enabled is true")
	}
	if c.MQTT.Topic == "" {
		return errors.New("mqtt.topic must be set when mqtt.enabled is true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
