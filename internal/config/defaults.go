package config

const (
	defaultReadingsDir         = "~/.local/share/amuza/readings"
	defaultLogDir              = "~/.local/share/amuza/logs"
	defaultSocketPath          = "~/.local/share/amuza/amuzad.sock"
	defaultAmuzaPort           = "/dev/rfcomm0"
	defaultAmuzaBaudRate       = 9600
	defaultAckTimeoutSeconds   = 5
	defaultQueryIntervalMS     = 1000
	defaultPotentiostatPort    = "/dev/ttyUSB0"
	defaultPotentiostatBaud    = 9600
	defaultReadTimeoutMS       = 500
	defaultFrameErrorThreshold = 5
	defaultStreamBuffer        = 64
	defaultSamplingSeconds     = 90
	defaultBufferSeconds       = 60
	defaultStabilityWindow     = 10
	defaultStabilityThreshold  = 0.05
	defaultMQTTServer          = "tcp://localhost:1883"
	defaultMQTTClientID        = "amuzad"
	defaultMQTTTopic           = "amuza/samples"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ReadingsDir: defaultReadingsDir,
			LogDir:      defaultLogDir,
			SocketPath:  defaultSocketPath,
		},
		Amuza: Amuza{
			Port:              defaultAmuzaPort,
			BaudRate:          defaultAmuzaBaudRate,
			AckTimeoutSeconds: defaultAckTimeoutSeconds,
			QueryIntervalMS:   defaultQueryIntervalMS,
		},
		Potentiostat: Potentiostat{
			Port:                defaultPotentiostatPort,
			BaudRate:            defaultPotentiostatBaud,
			ReadTimeoutMS:       defaultReadTimeoutMS,
			FrameErrorThreshold: defaultFrameErrorThreshold,
			StreamBuffer:        defaultStreamBuffer,
		},
		Sampling: Sampling{
			SamplingSeconds: defaultSamplingSeconds,
			BufferSeconds:   defaultBufferSeconds,
		},
		Calibration: Calibration{
			Expected:           map[string]float64{},
			GainOverrides:      map[string]float64{},
			StabilityWindow:    defaultStabilityWindow,
			StabilityThreshold: defaultStabilityThreshold,
		},
		MQTT: MQTT{
			Server:   defaultMQTTServer,
			ClientID: defaultMQTTClientID,
			Topic:    defaultMQTTTopic,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
