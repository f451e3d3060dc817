package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-events/internal/logger"
	"ms-events/internal/models"
)

// MessageWriter is the part of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	Writer MessageWriter
	Topic  string
	Logger *logger.Logger
}

func NewProducer(brokers []string, topic string, l *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &Producer{Writer: writer, Topic: topic, Logger: l}
}

// Publish streams a lifecycle event keyed by event id, so every change to
// one event lands on the same partition in order.
func (p *Producer) Publish(ctx context.Context, event models.DomainEvent) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = p.Writer.WriteMessages(ctx,
		kafka.Message{
			Key:   []byte(strconv.FormatInt(event.EventID, 10)),
			Value: msgBytes,
			Headers: []kafka.Header{
				{Key: "type", Value: []byte(event.Type)},
			},
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s for event %d: %w", event.Type, event.EventID, err)
	}

	p.Logger.LogKafka("PUBLISH", p.Topic, fmt.Sprintf("%s event=%d id=%s", event.Type, event.EventID, event.ID))
	return nil
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
