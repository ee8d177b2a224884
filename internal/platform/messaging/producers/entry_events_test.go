package producers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fundflow-core/internal/domain/shared"
)

// MockKafkaWriter mocks KafkaWriter, shared across package test files
type MockKafkaWriter struct {
	mock.Mock
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockKafkaWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestEntryEventProducer_Publish(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := context.Background()

	t.Run("writes the event keyed by entry ID", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &EntryEventProducer{
			logger: logger,
			writer: mockWriter,
			topic:  "ledger_entry_events",
		}

		event := shared.EntryEvent{
			EntryID:   uuid.New(),
			AccountID: uuid.New(),
			Type:      "WITHDRAW",
			Amount:    2_500,
			Status:    "PENDING",
			Timestamp: time.Now().UTC(),
		}
		expectedJSON, _ := json.Marshal(event)

		mockWriter.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
			if len(msgs) != 1 {
				return false
			}
			return string(msgs[0].Key) == event.EntryID.String() &&
				string(msgs[0].Value) == string(expectedJSON)
		})).Return(nil).Once()

		err := producer.Publish(ctx, event.EntryID.String(), event)
		require.NoError(t, err)
		mockWriter.AssertExpectations(t)
	})

	t.Run("wraps writer errors", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &EntryEventProducer{
			logger: logger,
			writer: mockWriter,
			topic:  "ledger_entry_events",
		}

		writeErr := errors.New("broker unavailable")
		mockWriter.On("WriteMessages", ctx, mock.AnythingOfType("[]kafka.Message")).Return(writeErr).Once()

		err := producer.Publish(ctx, "some-key", map[string]string{"k": "v"})
		require.Error(t, err)
		assert.ErrorIs(t, err, writeErr)
		mockWriter.AssertExpectations(t)
	})

	t.Run("rejects values that cannot be marshaled", func(t *testing.T) {
		producer := &EntryEventProducer{
			logger: logger,
			writer: new(MockKafkaWriter),
			topic:  "ledger_entry_events",
		}

		err := producer.Publish(ctx, "key", make(chan int))
		require.Error(t, err)
	})
}

func TestEntryEventProducer_Close(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	mockWriter := new(MockKafkaWriter)
	producer := &EntryEventProducer{logger: logger, writer: mockWriter, topic: "ledger_entry_events"}
	mockWriter.On("Close").Return(nil).Once()

	require.NoError(t, producer.Close())
	mockWriter.AssertExpectations(t)
}
