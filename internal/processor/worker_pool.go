package processor

import (
	"context"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/fundflow-core/internal/domain/shared"
)

// WorkerPoolDecisionService fans decisions out to an ants pool while keeping
// the caller synchronous: the consumer only commits an offset once the
// decision landed, so each Apply call waits for its worker.
type WorkerPoolDecisionService struct {
	base   DecisionService
	pool   *ants.Pool
	logger *slog.Logger

	mu      sync.Mutex
	results map[string]chan error
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolDecisionService(base DecisionService, cfg WorkerPoolConfig, logger *slog.Logger) (*WorkerPoolDecisionService, error) {
	pool, err := ants.NewPool(cfg.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolDecisionService{
		base:    base,
		pool:    pool,
		logger:  logger,
		results: make(map[string]chan error),
	}, nil
}

// ApplyDecision submits the decision to the pool and waits for the result
func (s *WorkerPoolDecisionService) ApplyDecision(ctx context.Context, decision *shared.ApprovalDecision) error {
	logger := s.logger
	if decision.CorrelationID != "" {
		logger = s.logger.With("correlation_id", decision.CorrelationID)
	}

	resultChan := make(chan error, 1)
	entryID := decision.EntryID.String()

	s.mu.Lock()
	s.results[entryID] = resultChan
	s.mu.Unlock()

	decisionCopy := *decision
	err := s.pool.Submit(func() {
		err := s.base.ApplyDecision(ctx, &decisionCopy)

		resultChan <- err

		s.mu.Lock()
		delete(s.results, entryID)
		close(resultChan)
		s.mu.Unlock()
	})

	if err != nil {
		s.mu.Lock()
		delete(s.results, entryID)
		close(resultChan)
		s.mu.Unlock()

		logger.Error("Failed to submit decision to worker pool",
			"entry_id", entryID,
			"error", err,
		)
		return err
	}

	return <-resultChan
}

// Shutdown releases the worker pool
func (s *WorkerPoolDecisionService) Shutdown() {
	s.logger.Info("Shutting down decision worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of busy workers
func (s *WorkerPoolDecisionService) Running() int {
	return s.pool.Running()
}

// Capacity returns the pool capacity
func (s *WorkerPoolDecisionService) Capacity() int {
	return s.pool.Cap()
}
