package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAmuza()
	c.normalizePotentiostat()
	c.normalizeCalibration()
	c.normalizeMQTT()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ReadingsDir) == "" {
		c.Paths.ReadingsDir = defaultReadingsDir
	}
	if c.Paths.ReadingsDir, err = expandPath(c.Paths.ReadingsDir); err != nil {
		return fmt.Errorf("paths.readings_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SocketPath) == "" {
		c.Paths.SocketPath = defaultSocketPath
	}
	if c.Paths.SocketPath, err = expandPath(c.Paths.SocketPath); err != nil {
		return fmt.Errorf("paths.socket_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeAmuza() {
	c.Amuza.Port = strings.TrimSpace(c.Amuza.Port)
	if c.Amuza.BaudRate == 0 {
		c.Amuza.BaudRate = defaultAmuzaBaudRate
	}
	if c.Amuza.AckTimeoutSeconds == 0 {
		c.Amuza.AckTimeoutSeconds = defaultAckTimeoutSeconds
	}
	if c.Amuza.QueryIntervalMS == 0 {
		c.Amuza.QueryIntervalMS = defaultQueryIntervalMS
	}
}

func (c *Config) normalizePotentiostat() {
	c.Potentiostat.Port = strings.TrimSpace(c.Potentiostat.Port)
	if c.Potentiostat.BaudRate == 0 {
		c.Potentiostat.BaudRate = defaultPotentiostatBaud
	}
	if c.Potentiostat.ReadTimeoutMS == 0 {
		c.Potentiostat.ReadTimeoutMS = defaultReadTimeoutMS
	}
	if c.Potentiostat.FrameErrorThreshold == 0 {
		c.Potentiostat.FrameErrorThreshold = defaultFrameErrorThreshold
	}
	if c.Potentiostat.StreamBuffer == 0 {
		c.Potentiostat.StreamBuffer = defaultStreamBuffer
	}
}

func (c *Config) normalizeCalibration() {
	if c.Calibration.Expected == nil {
		c.Calibration.Expected = map[string]float64{}
	}
	if c.Calibration.GainOverrides == nil {
		c.Calibration.GainOverrides = map[string]float64{}
	}
	if c.Calibration.StabilityWindow == 0 {
		c.Calibration.StabilityWindow = defaultStabilityWindow
	}
	if c.Calibration.StabilityThreshold == 0 {
		c.Calibration.StabilityThreshold = defaultStabilityThreshold
	}
}

func (c *Config) normalizeMQTT() {
	c.MQTT.Server = strings.TrimSpace(c.MQTT.Server)
	if c.MQTT.Server == "" {
		c.MQTT.Server = defaultMQTTServer
	}
	c.MQTT.ClientID = strings.TrimSpace(c.MQTT.ClientID)
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = defaultMQTTClientID
	}
	c.MQTT.Topic = strings.TrimSpace(c.MQTT.Topic)
	if c.MQTT.Topic == "" {
		c.MQTT.Topic = defaultMQTTTopic
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
