package consumers

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/fundflow-core/internal/config"
)

// MessageHandler processes one message. A non-nil error leaves the offset
// uncommitted so the message is redelivered; handlers that want a poison
// message gone for good must route it to the DLQ and return nil.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// Consumer defines the message queue consumer interface
type Consumer interface {
	Subscribe(ctx context.Context, handler MessageHandler) error
	Close() error
}

// KafkaConsumer reads one topic within a consumer group
type KafkaConsumer struct {
	reader  *kafka.Reader
	logger  *slog.Logger
	topic   string
	groupID string
}

// NewKafkaConsumer builds a consumer for the given topic. The topic is an
// argument rather than config because different workers in this process
// consume different topics off the same broker config.
func NewKafkaConsumer(logger *slog.Logger, cfg *config.KafkaConfig, topic string) *KafkaConsumer {
	return &KafkaConsumer{
		logger:  logger,
		topic:   topic,
		groupID: cfg.ConsumerGroup,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     []string{cfg.Brokers},
			Topic:       topic,
			GroupID:     cfg.ConsumerGroup,
			MinBytes:    cfg.MinBytes,
			MaxBytes:    cfg.MaxBytes,
			MaxWait:     cfg.MaxWait,
			StartOffset: kafka.FirstOffset,
		}),
	}
}

// Subscribe starts the fetch loop in a goroutine and returns immediately.
// The loop runs until ctx is canceled.
func (c *KafkaConsumer) Subscribe(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("Subscribed to Kafka topic", "topic", c.topic, "group_id", c.groupID)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.logger.Info("Stopping consumer", "topic", c.topic, "group_id", c.groupID)
				return
			default:
				msg, err := c.reader.FetchMessage(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					c.logger.Error("Failed to fetch message", "topic", c.topic, "error", err)
					time.Sleep(time.Second)
					continue
				}

				if err := handler(ctx, msg.Key, msg.Value); err != nil {
					// Offset stays uncommitted so the message comes back
					c.logger.Error("Failed to process message",
						"topic", msg.Topic,
						"partition", msg.Partition,
						"offset", msg.Offset,
						"key", string(msg.Key),
						"error", err,
					)
					continue
				}

				if err := c.reader.CommitMessages(ctx, msg); err != nil {
					c.logger.Error("Failed to commit offset",
						"topic", msg.Topic,
						"offset", msg.Offset,
						"key", string(msg.Key),
						"error", err,
					)
				}
			}
		}
	}()

	return nil
}

func (c *KafkaConsumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
