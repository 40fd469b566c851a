package publisher

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "landregistry/pkg/platform/audit"
)

// Kafka publishes audit events to a Kafka topic. Events are keyed by actor
// credential so per-caller ordering survives partitioning. Produce failures
// are logged, never surfaced to the command path.
type Kafka struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

func NewKafka(brokers []string, topic string, logger *slog.Logger) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, err
	}
	return &Kafka{client: client, topic: topic, logger: logger}, nil
}

// Emit is best effort and always returns nil, like Channel: an event that
// cannot be encoded or produced is logged and dropped, never surfaced to the
// command path.
func (k *Kafka) Emit(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		if k.logger != nil {
			k.logger.Error("audit encode failed",
				"action", event.Action,
				"error", err,
			)
		}
		return nil
	}
	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(event.Actor),
		Value: value,
	}
	k.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil && k.logger != nil {
			k.logger.Error("audit publish failed",
				"action", event.Action,
				"error", err,
			)
		}
	})
	return nil
}

// Close flushes pending records and releases the client.
func (k *Kafka) Close(ctx context.Context) error {
	if err := k.client.Flush(ctx); err != nil {
		return err
	}
	k.client.Close()
	return nil
}
