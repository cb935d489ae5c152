// v1
// internal/sink/kafka.go
package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"solarmon/internal/telemetry"
)

// KafkaSink streams every calibrated sample to a Kafka topic. The message
// key is the device name so one device's samples stay on one partition.
type KafkaSink struct {
	writer *kafka.Writer
	source string
}

// NewKafkaSink builds a writer for the given brokers and topic. kafka-go
// writers connect lazily, so construction cannot fail on an unreachable
// broker; write errors surface per sample instead.
func NewKafkaSink(brokers []string, topic, source string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
		source: source,
	}
}

func (s *KafkaSink) Name() string {
	return "kafka"
}

func (s *KafkaSink) Write(ctx context.Context, sample telemetry.CalibratedSample) error {
	b, err := json.Marshal(NewEnvelope(s.source, sample))
	if err != nil {
		return fmt.Errorf("marshal sample envelope: %w", err)
	}
	err = s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(s.source),
		Value: b,
		Time:  sample.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
