package processor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fundflow-core/internal/domain/shared"
)

type MockDecisionService struct {
	mock.Mock
}

func (m *MockDecisionService) ApplyDecision(ctx context.Context, decision *shared.ApprovalDecision) error {
	args := m.Called(ctx, decision)
	return args.Error(0)
}

type MockDLQPublisher struct {
	mock.Mock
}

func (m *MockDLQPublisher) PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error {
	args := m.Called(ctx, key, originalMessageValue, reason)
	return args.Error(0)
}

func (m *MockDLQPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestApprovalEventHandler_HandleMessage(t *testing.T) {
	ctx := context.Background()
	entryID := uuid.New()

	validMessage := func() []byte {
		b, _ := json.Marshal(shared.ApprovalDecision{
			EntryID:   entryID,
			AccountID: uuid.New(),
			Decision:  shared.DecisionApprove,
			Reason:    "reviewed",
		})
		return b
	}

	t.Run("applies a valid decision", func(t *testing.T) {
		decisions := new(MockDecisionService)
		decisions.On("ApplyDecision", ctx, mock.MatchedBy(func(d *shared.ApprovalDecision) bool {
			return d.EntryID == entryID && d.Decision == shared.DecisionApprove
		})).Return(nil).Once()
		handler := NewApprovalEventHandler(newDecisionTestLogger(), decisions, nil)

		err := handler.HandleMessage(ctx, []byte(entryID.String()), validMessage())

		require.NoError(t, err)
		decisions.AssertExpectations(t)
	})

	t.Run("parks malformed JSON on the DLQ and commits", func(t *testing.T) {
		decisions := new(MockDecisionService)
		dlq := new(MockDLQPublisher)
		dlq.On("PublishToDLQ", ctx, "bad-key", []byte("{not json"), mock.AnythingOfType("string")).Return(nil).Once()
		handler := NewApprovalEventHandler(newDecisionTestLogger(), decisions, dlq)

		err := handler.HandleMessage(ctx, []byte("bad-key"), []byte("{not json"))

		require.NoError(t, err)
		dlq.AssertExpectations(t)
		decisions.AssertNotCalled(t, "ApplyDecision", mock.Anything, mock.Anything)
	})

	t.Run("returns the original error when dead-lettering fails", func(t *testing.T) {
		dlq := new(MockDLQPublisher)
		dlq.On("PublishToDLQ", ctx, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("dlq down")).Once()
		handler := NewApprovalEventHandler(newDecisionTestLogger(), new(MockDecisionService), dlq)

		err := handler.HandleMessage(ctx, []byte("bad-key"), []byte("{not json"))

		require.Error(t, err)
	})

	t.Run("parks decisions missing an entry ID", func(t *testing.T) {
		dlq := new(MockDLQPublisher)
		dlq.On("PublishToDLQ", ctx, mock.Anything, mock.Anything, "approval decision missing entry_id").Return(nil).Once()
		handler := NewApprovalEventHandler(newDecisionTestLogger(), new(MockDecisionService), dlq)

		payload, _ := json.Marshal(shared.ApprovalDecision{Decision: shared.DecisionApprove})
		err := handler.HandleMessage(ctx, []byte("k"), payload)

		require.NoError(t, err)
		dlq.AssertExpectations(t)
	})

	t.Run("parks unknown decisions", func(t *testing.T) {
		dlq := new(MockDLQPublisher)
		dlq.On("PublishToDLQ", ctx, mock.Anything, mock.Anything, `unknown decision "ESCALATE"`).Return(nil).Once()
		handler := NewApprovalEventHandler(newDecisionTestLogger(), new(MockDecisionService), dlq)

		payload, _ := json.Marshal(shared.ApprovalDecision{EntryID: entryID, Decision: "ESCALATE"})
		err := handler.HandleMessage(ctx, []byte("k"), payload)

		require.NoError(t, err)
		dlq.AssertExpectations(t)
	})

	t.Run("propagates apply errors so the broker redelivers", func(t *testing.T) {
		decisions := new(MockDecisionService)
		applyErr := errors.New("lock contention")
		decisions.On("ApplyDecision", ctx, mock.Anything).Return(applyErr).Once()
		handler := NewApprovalEventHandler(newDecisionTestLogger(), decisions, nil)

		err := handler.HandleMessage(ctx, []byte(entryID.String()), validMessage())

		assert.ErrorIs(t, err, applyErr)
	})
}
