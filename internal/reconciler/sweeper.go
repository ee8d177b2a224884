// Package reconciler sweeps the ledger for entries stuck in non-terminal
// statuses past their timeout window and resolves them: expired approvals
// are failed outright, stalled executions get a bounded number of fresh
// windows before they are failed and parked for manual attention.
package reconciler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/fundflow-core/internal/config"
	"github.com/fundflow-core/internal/domain/ledger"
	"github.com/fundflow-core/internal/platform/messaging/producers"
)

// sweepStatuses are the non-terminal statuses a stale entry can sit in
var sweepStatuses = []ledger.Status{
	ledger.StatusPending,
	ledger.StatusManualReview,
	ledger.StatusApproved,
	ledger.StatusProcessing,
}

const (
	noteApprovalExpired  = "approval window expired"
	noteExecutionExpired = "execution timed out, retries exhausted"
)

// Sweeper periodically resolves stale ledger entries
type Sweeper struct {
	ledgerRepo ledger.Repository
	dlq        producers.DeadLetterPublisher
	pool       *ants.Pool
	logger     *slog.Logger
	interval   time.Duration
	batchSize  int
	now        func() time.Time
}

// NewSweeper builds a sweeper backed by a worker pool of the given size.
// dlq may be nil when dead-lettering is disabled.
func NewSweeper(
	logger *slog.Logger,
	cfg *config.ReconcilerConfig,
	poolSize int,
	ledgerRepo ledger.Repository,
	dlq producers.DeadLetterPublisher,
) (*Sweeper, error) {
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	return &Sweeper{
		ledgerRepo: ledgerRepo,
		dlq:        dlq,
		pool:       pool,
		logger:     logger,
		interval:   cfg.SweepInterval,
		batchSize:  cfg.BatchSize,
		now:        time.Now,
	}, nil
}

// Start runs sweep rounds until ctx is canceled
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting reconciliation sweeper",
		"sweep_interval", s.interval.String(),
		"batch_size", s.batchSize,
	)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Reconciliation sweeper stopping")
			s.pool.Release()
			return
		case <-ticker.C:
			if err := s.SweepOnce(ctx); err != nil {
				s.logger.Error("Sweep round failed", "error", err)
			}
		}
	}
}

// SweepOnce resolves one batch of stale entries, fanning the work out to
// the pool and waiting for the batch to finish
func (s *Sweeper) SweepOnce(ctx context.Context) error {
	stale, err := s.ledgerRepo.FindStale(ctx, sweepStatuses, s.now(), s.batchSize)
	if err != nil {
		return fmt.Errorf("failed to query stale entries: %w", err)
	}

	if len(stale) == 0 {
		return nil
	}

	s.logger.Info("Sweeping stale entries", "count", len(stale))

	var wg sync.WaitGroup
	for _, entry := range stale {
		entry := entry
		wg.Add(1)
		if err := s.pool.Submit(func() {
			defer wg.Done()
			s.resolve(ctx, entry)
		}); err != nil {
			wg.Done()
			s.logger.Error("Failed to submit stale entry to pool", "entry_id", entry.ID.String(), "error", err)
		}
	}
	wg.Wait()

	return nil
}

// resolve decides the fate of one stale entry. CAS failures are benign:
// the entry moved on between the query and the write.
func (s *Sweeper) resolve(ctx context.Context, entry *ledger.Entry) {
	logger := s.logger
	if entry.CorrelationID != "" {
		logger = s.logger.With("correlation_id", entry.CorrelationID)
	}

	switch entry.Status {
	case ledger.StatusPending, ledger.StatusManualReview:
		// The decision never came; more time will not produce one
		s.fail(ctx, logger, entry, noteApprovalExpired, false)

	case ledger.StatusApproved, ledger.StatusProcessing:
		if entry.RetriesExhausted() {
			s.fail(ctx, logger, entry, noteExecutionExpired, true)
			return
		}
		if err := s.ledgerRepo.IncrementRetryCount(ctx, entry.ID); err != nil {
			logger.Error("Failed to increment retry count", "entry_id", entry.ID.String(), "error", err)
			return
		}
		// A same-status CAS refreshes the timeout window for another attempt
		note := fmt.Sprintf("stale in %s, granting retry %d of %d", entry.Status, entry.RetryCount+1, entry.MaxRetries)
		if _, err := s.ledgerRepo.UpdateStatusCAS(ctx, entry.ID, entry.Status, entry.Status, note); err != nil {
			logger.Warn("Could not refresh timeout window, entry moved on", "entry_id", entry.ID.String(), "error", err)
			return
		}
		logger.Warn("Granted stale entry another execution window",
			"entry_id", entry.ID.String(),
			"status", string(entry.Status),
			"retry", entry.RetryCount+1,
		)

	default:
		logger.Warn("Stale query returned an entry in unexpected status",
			"entry_id", entry.ID.String(),
			"status", string(entry.Status),
		)
	}
}

func (s *Sweeper) fail(ctx context.Context, logger *slog.Logger, entry *ledger.Entry, note string, park bool) {
	failed, err := s.ledgerRepo.UpdateStatusCAS(ctx, entry.ID, entry.Status, ledger.StatusFailed, note)
	if err != nil {
		logger.Warn("Could not fail stale entry, entry moved on", "entry_id", entry.ID.String(), "error", err)
		return
	}

	logger.Warn("Failed stale entry",
		"entry_id", entry.ID.String(),
		"previous_status", string(entry.Status),
		"note", note,
	)

	if park && s.dlq != nil {
		payload, err := json.Marshal(failed)
		if err != nil {
			logger.Error("Failed to marshal entry for DLQ", "entry_id", entry.ID.String(), "error", err)
			return
		}
		if err := s.dlq.PublishToDLQ(ctx, entry.ID.String(), payload, note); err != nil {
			logger.Error("Failed to park swept entry on DLQ", "entry_id", entry.ID.String(), "error", err)
		}
	}
}
