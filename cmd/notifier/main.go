package main

import (
	"context"
	"fmt"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ms-events/internal/config"
	"ms-events/internal/kafka"
	"ms-events/internal/logger"
	"ms-events/internal/models"
)

// describe renders a lifecycle event as a one-line notification.
func describe(e models.DomainEvent) string {
	switch e.Type {
	case models.EventCreated:
		if e.Event != nil {
			return fmt.Sprintf("%s created event %d %q on %s at %s", e.Actor, e.EventID, e.Event.Name, e.Event.Date, e.Event.Location)
		}
		return fmt.Sprintf("%s created event %d", e.Actor, e.EventID)
	case models.EventUpdated:
		return fmt.Sprintf("%s updated event %d", e.Actor, e.EventID)
	case models.EventDeleted:
		return fmt.Sprintf("%s deleted event %d", e.Actor, e.EventID)
	case models.AttendeeRegistered:
		return fmt.Sprintf("%s registered for event %d", e.Actor, e.EventID)
	default:
		return fmt.Sprintf("unknown event type %q for event %d", e.Type, e.EventID)
	}
}

type topicLister func(ctx context.Context, brokers []string) ([]string, error)

// requireTopic fails when topic is missing from the cluster.
func requireTopic(ctx context.Context, list topicLister, brokers []string, topic string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	topics, err := list(ctx, brokers)
	if err != nil {
		return fmt.Errorf("list kafka topics: %w", err)
	}
	if !slices.Contains(topics, topic) {
		return fmt.Errorf("kafka topic %s does not exist", topic)
	}
	return nil
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	cfg.Log.Service = "events-notifier"
	logger := logger.NewLogger(cfg.Log)
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, []string{cfg.Kafka.Topic}, logger); err != nil {
		logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	}
	if err := requireTopic(ctx, kafka.ListTopics, cfg.Kafka.Brokers, cfg.Kafka.Topic); err != nil {
		logger.Fatal("KAFKA", err.Error())
	}

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, logger)
	defer consumer.Close()

	logger.Info("APP", fmt.Sprintf("Notifier listening on %s as %s", cfg.Kafka.Topic, cfg.Kafka.GroupID))
	err := consumer.Start(ctx, func(e models.DomainEvent) {
		logger.Info("NOTIFY", describe(e))
	})
	if err != nil {
		logger.Error("KAFKA", err.Error())
	}
	logger.Info("APP", "Notifier stopped")
}
