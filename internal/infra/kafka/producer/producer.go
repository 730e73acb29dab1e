package producer

import (
	"context"
	"encoding/json"
	"fmt"

	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"

	"github.com/aliskhannn/catalog-studio/internal/config"
	"github.com/aliskhannn/catalog-studio/internal/model"
)

// Producer publishes processed-item events to Kafka.
type Producer struct {
	Client   *wbfkafka.Producer
	strategy retry.Strategy
}

// New creates a new Producer writing to cfg.EventsTopic.
func New(cfg *config.Kafka, s retry.Strategy) *Producer {
	return &Producer{
		Client:   wbfkafka.NewProducer(cfg.Brokers, cfg.EventsTopic),
		strategy: s,
	}
}

// Publish serializes the event to JSON and sends it with retries.
// The run ID is the message key so a run's events stay ordered.
func (p *Producer) Publish(ctx context.Context, event model.ProcessedEvent) error {
	key, data, err := Encode(event)
	if err != nil {
		return err
	}

	if err = p.Client.SendWithRetry(ctx, p.strategy, key, data); err != nil {
		return fmt.Errorf("failed to send event: %w", err)
	}

	return nil
}

// Encode returns the message key and value for event.
func Encode(event model.ProcessedEvent) ([]byte, []byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	return []byte(event.RunID), data, nil
}
