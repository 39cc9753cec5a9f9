package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"github.com/spending-insight/backend/internal/config"
)

// SyncEventProducer publishes sync requests from the API gateway. Writes are
// async: a webhook response must not wait on broker acks.
type SyncEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewSyncEventProducer creates the gateway-side producer and ensures the
// sync event topic exists.
func NewSyncEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*SyncEventProducer, error) {
	if cfg.SyncEventTopic == "" {
		return nil, fmt.Errorf("kafka sync event topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for sync event producer: %w", err)
	}
	defer conn.Close()

	if err := createKafkaTopicIfNotExists(conn, cfg.SyncEventTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure sync event topic %s exists: %w", cfg.SyncEventTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.SyncEventTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		WriteTimeout: cfg.MaxWait,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write messages asynchronously", "topic", cfg.SyncEventTopic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Successfully wrote messages asynchronously", "topic", cfg.SyncEventTopic, "count", len(messages))
			}
		},
	}

	return &SyncEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.SyncEventTopic,
	}, nil
}

func (p *SyncEventProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal sync event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish sync event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish sync event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published sync event",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *SyncEventProducer) Close() error {
	p.logger.Info("Closing sync event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
