package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"curricula/internal/platform/metrics"
)

// KafkaQueue publishes welcome jobs to a Kafka topic. Produces are async and
// fire-and-forget: a broker outage or produce failure is logged and absorbed,
// it never fails the registration that triggered it.
type KafkaQueue struct {
	client  *kgo.Client
	topic   string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewKafka(brokers []string, topic string, logger *slog.Logger, m *metrics.Metrics) (*KafkaQueue, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaQueue{
		client:  client,
		topic:   topic,
		logger:  logger,
		metrics: m,
	}, nil
}

func (q *KafkaQueue) EnqueueWelcome(ctx context.Context, email, name string) {
	payload, err := json.Marshal(welcomeJob{Type: "welcome", To: email, Name: name})
	if err != nil {
		q.logger.WarnContext(ctx, "failed to encode welcome job", "error", err)
		return
	}

	record := &kgo.Record{
		Topic: q.topic,
		Key:   []byte(email),
		Value: payload,
	}
	q.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			q.logger.Warn("failed to enqueue welcome email", "to", email, "error", err)
			return
		}
		if q.metrics != nil {
			q.metrics.WelcomeEmailsEnqueued.Inc()
		}
	})
}

// Close flushes in-flight produces and releases the client.
func (q *KafkaQueue) Close() {
	_ = q.client.Flush(context.Background())
	q.client.Close()
}
