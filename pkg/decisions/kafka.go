package decisions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// DefaultKafkaTopic receives decision events when no topic is configured.
const DefaultKafkaTopic = "outreach.channel-decisions"

// KafkaConfig holds producer settings.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaRecorder produces decisions to a Kafka topic keyed by customer id, so
// one customer's decisions stay ordered within a partition.
type KafkaRecorder struct {
	writer messageWriter
}

// NewKafkaRecorder creates a recorder writing to cfg.Topic on cfg.Brokers.
func NewKafkaRecorder(cfg KafkaConfig) (*KafkaRecorder, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: at least one broker is required")
	}
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultKafkaTopic
	}
	return newKafkaRecorder(&kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}), nil
}

func newKafkaRecorder(w messageWriter) *KafkaRecorder {
	return &KafkaRecorder{writer: w}
}

// Record implements Recorder.
func (k *KafkaRecorder) Record(ctx context.Context, d Decision) error {
	return k.WriteBatch(ctx, []Decision{d})
}

// WriteBatch implements BatchWriter with a single produce call.
func (k *KafkaRecorder) WriteBatch(ctx context.Context, batch []Decision) error {
	if len(batch) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(batch))
	for _, d := range batch {
		msg, err := decisionMessage(d)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}

	if err := k.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka: writing %d decisions: %w", len(msgs), err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (k *KafkaRecorder) Close() error {
	return k.writer.Close()
}

func decisionMessage(d Decision) (kafka.Message, error) {
	data, err := json.Marshal(NewDecisionEvent(d))
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafka: marshaling decision %s: %w", d.ID, err)
	}
	return kafka.Message{
		Key:   []byte(d.CustomerID),
		Value: data,
		Time:  d.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventType)},
		},
	}, nil
}
