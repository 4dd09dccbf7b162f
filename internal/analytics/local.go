package analytics

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/kafka"
)

// LocalPublisher hands batches straight to an Aggregator. It is used when
// Kafka is disabled, and goes through the same JSON decoding as the
// consumer path.
type LocalPublisher struct {
	handle kafka.MessageHandler
}

func NewLocalPublisher(agg *Aggregator) *LocalPublisher {
	return &LocalPublisher{handle: HandleEvent(agg)}
}

func (p *LocalPublisher) PublishBatch(ctx context.Context, events []kafka.Event) error {
	for _, event := range events {
		value, err := json.Marshal(event.Value)
		if err != nil {
			return fmt.Errorf("marshaling event value: %w", err)
		}
		if err := p.handle(ctx, []byte(event.Key), value); err != nil {
			return err
		}
	}
	return nil
}
