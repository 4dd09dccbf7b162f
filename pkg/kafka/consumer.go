// Package kafka provides the analytics event producer and consumer backed by
// segmentio/kafka-go. Events travel as JSON; the consumer hands each message
// to a MessageHandler and commits it once handled.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/config"
	"github.com/segmentio/kafka-go"
)

// fetchBackoff is the pause after a failed fetch before trying again.
const fetchBackoff = time.Second

// MessageHandler is a callback invoked for each Kafka message.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// Consumer reads messages from a Kafka topic as part of a consumer group
// and dispatches them to a MessageHandler.
type Consumer struct {
	reader  *kafka.Reader
	logger  *slog.Logger
	handler MessageHandler
}

// NewConsumer creates a Consumer for the given topic and handler. A new
// consumer group starts from the latest offset, so analytics only reflect
// events published while some instance was running.
func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    1e6,
		MaxWait:     time.Second,
		StartOffset: kafka.LastOffset,
	})
	return &Consumer{
		reader:  r,
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic),
		handler: handler,
	}
}

// Start consumes until ctx is cancelled, then closes the reader. Fetch
// errors are logged and retried after a pause.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	defer c.logger.Info("consumer stopped")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return c.reader.Close()
			}
			c.logger.Error("failed to fetch message", "error", err)
			select {
			case <-time.After(fetchBackoff):
			case <-ctx.Done():
			}
			continue
		}
		c.process(ctx, msg)
	}
}

// process hands msg to the handler and commits it on success. A failed
// message stays uncommitted and is redelivered after a rebalance.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	log := c.logger.With("partition", msg.Partition, "offset", msg.Offset)
	log.Debug("message received", "key", string(msg.Key), "value_size", len(msg.Value))

	if err := c.handler(ctx, msg.Key, msg.Value); err != nil {
		log.Error("failed to process message", "error", err)
		return
	}
	if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
		log.Error("failed to commit message", "error", err)
	}
}

// Lag is the number of messages the group is behind the partition head, as
// last reported by the reader.
func (c *Consumer) Lag() int64 {
	return c.reader.Stats().Lag
}

// Close closes the underlying Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DecodeJSON unmarshals a Kafka message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}
