package outputs

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"amuza/internal/config"
)

// DefaultTopic is used when the config leaves the topic empty.
const DefaultTopic = "amuza/samples"

// MQTTOutput publishes samples as JSON to an MQTT broker.
type MQTTOutput struct {
	client mqtt.Client
	topic  string
}

// NewMQTT connects to the broker named in cfg and returns a publishing
// sink.
func NewMQTT(cfg config.MQTT) (*MQTTOutput, error) {
	opts := mqtt.NewClientOptions().AddBroker(cfg.Server).SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}

	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	return &MQTTOutput{client: client, topic: topic}, nil
}

func (m *MQTTOutput) Publish(sample Sample) error {
	payload, err := json.Marshal(sample)
	if err != nil {
		return err
	}
	token := m.client.Publish(m.topic, 0, false, payload)
	token.Wait()
	return token.Error()
}

func (m *MQTTOutput) Close() error {
	if m.client != nil {
		m.client.Disconnect(250)
	}
	return nil
}
