// v1
// internal/sink/mqtt.go
package sink

import (
	"context"
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"solarmon/internal/telemetry"
)

// MQTTSink publishes every calibrated sample as a JSON envelope to a
// configured topic.
type MQTTSink struct {
	client mqtt.Client
	topic  string
	qos    byte
	source string
}

// MQTTConfig captures the broker settings for the optional MQTT stream.
type MQTTConfig struct {
	Broker   string
	Topic    string
	ClientID string
	QoS      byte
	Source   string
}

// NewMQTTSink connects to the broker; a broker that cannot be reached at
// startup fails construction so the caller can decide to run without the
// sink.
func NewMQTTSink(cfg MQTTConfig) (*MQTTSink, error) {
	opts := mqtt.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect mqtt broker %s: %w", cfg.Broker, token.Error())
	}
	return &MQTTSink{client: client, topic: cfg.Topic, qos: cfg.QoS, source: cfg.Source}, nil
}

func (s *MQTTSink) Name() string {
	return "mqtt"
}

func (s *MQTTSink) Write(_ context.Context, sample telemetry.CalibratedSample) error {
	payload, err := json.Marshal(NewEnvelope(s.source, sample))
	if err != nil {
		return fmt.Errorf("marshal sample envelope: %w", err)
	}
	token := s.client.Publish(s.topic, s.qos, false, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("publish to %s: %w", s.topic, token.Error())
	}
	return nil
}

func (s *MQTTSink) Close() error {
	s.client.Disconnect(250)
	return nil
}
