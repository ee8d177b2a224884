package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// MessagePublisher publishes entry lifecycle events keyed for ordering
// within one entry
type MessagePublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// DeadLetterPublisher parks messages that cannot be processed, tagging
// them with a reason for the operator who reviews the queue
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter is the slice of kafka.Writer the producers use, extracted
// so tests can substitute a recorder
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
