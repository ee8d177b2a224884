package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/fundflow-core/internal/config"
	"github.com/segmentio/kafka-go"
)

// EntryEventProducer publishes ledger entry lifecycle events. Writes are
// async: a dropped event never blocks or fails the money path, consumers of
// the events topic must tolerate gaps and reconcile from the ledger itself.
type EntryEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewEntryEventProducer creates the events producer and ensures the topic exists
func NewEntryEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*EntryEventProducer, error) {
	if cfg.EventsTopic == "" {
		return nil, fmt.Errorf("kafka events topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for entry event producer: %w", err)
	}
	defer conn.Close()

	err = ensureTopic(conn, cfg.EventsTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure events topic %s exists: %w", cfg.EventsTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.EventsTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		WriteTimeout: cfg.MaxWait,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write entry events asynchronously", "topic", cfg.EventsTopic, "error", err, "count", len(messages))
			}
		},
	}

	return &EntryEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.EventsTopic,
	}, nil
}

// Publish writes one event keyed by entry ID so per-entry ordering holds
// within a partition
func (p *EntryEventProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal entry event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish entry event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish entry event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published entry event", "topic", p.topic, "key", key)
	return nil
}

func (p *EntryEventProducer) Close() error {
	p.logger.Info("Closing entry event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close entry event writer for topic %s: %w", p.topic, err)
	}
	return nil
}
