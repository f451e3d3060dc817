package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-events/internal/logger"
	"ms-events/internal/models"
)

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

const (
	minReadBackoff = 100 * time.Millisecond
	maxReadBackoff = 5 * time.Second
)

type Consumer struct {
	reader MessageReader
	logger *logger.Logger
}

// NewConsumer creates a new Kafka consumer for the given topic and group
func NewConsumer(brokers []string, topic, groupID string, l *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader, logger: l}
}

// Start consumes lifecycle events until ctx is cancelled. Malformed
// messages are logged and skipped; read errors are retried with backoff
// until the reader reports it was closed.
func (c *Consumer) Start(ctx context.Context, handler func(models.DomainEvent)) error {
	c.logger.Info("KAFKA", "Kafka consumer started")

	backoff := minReadBackoff
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("kafka reader closed: %w", err)
			}
			c.logger.Error("KAFKA", fmt.Sprintf("Error reading message, retrying in %s: %v", backoff, err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxReadBackoff)
			continue
		}
		backoff = minReadBackoff

		var event models.DomainEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.logger.Warn("KAFKA", fmt.Sprintf("Failed to unmarshal message at offset %d: %v", msg.Offset, err))
			continue
		}

		c.logger.LogKafka("RECEIVE", msg.Topic, fmt.Sprintf("%s event=%d", event.Type, event.EventID))
		handler(event)
	}
}

// Close gracefully shuts down the Kafka reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}
