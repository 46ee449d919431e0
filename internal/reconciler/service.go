package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/goldenlotto/lottery-backend/pkg/db/models"
	"github.com/goldenlotto/lottery-backend/pkg/logger"
	"github.com/goldenlotto/lottery-backend/pkg/metrics"
)

const (
	jobName    = "settlement-reconciler"
	batchLimit = 100
)

type settlementResumer interface {
	ResumeUnsettled(ctx context.Context, limit int) (int, error)
}

type ledgerReader interface {
	ListStalePending(ctx context.Context, age time.Duration, limit int) ([]models.Transaction, error)
}

// leaseStore guards against concurrent reconciler instances. The lease
// expires on its own, so a crashed holder never blocks the next pass.
type leaseStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	LockKey(name string) string
}

// ServiceParams wires the reconciler loop.
type ServiceParams struct {
	Settlement   settlementResumer
	Ledger       ledgerReader
	Lease        leaseStore
	Metrics      *metrics.JobMetrics
	Logger       *logger.Logger
	PollInterval time.Duration
	PendingAge   time.Duration
}

// Service periodically resumes interrupted settlements and reports ledger
// entries stuck in pending. It repairs nothing by force: settlement resume is
// idempotent, and stale pending rows are surfaced for operators.
type Service struct {
	settlement   settlementResumer
	ledger       ledgerReader
	lease        leaseStore
	metrics      *metrics.JobMetrics
	logg         *logger.Logger
	pollInterval time.Duration
	pendingAge   time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Settlement == nil {
		return nil, fmt.Errorf("settlement resumer required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger reader required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive")
	}
	if params.PendingAge <= 0 {
		return nil, fmt.Errorf("pending age must be positive")
	}
	return &Service{
		settlement:   params.Settlement,
		ledger:       params.Ledger,
		lease:        params.Lease,
		metrics:      params.Metrics,
		logg:         params.Logger,
		pollInterval: params.PollInterval,
		pendingAge:   params.PendingAge,
	}, nil
}

// Run executes reconciliation passes until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	s.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Service) runOnce(ctx context.Context) {
	if !s.acquireLease(ctx) {
		return
	}
	defer s.releaseLease(ctx)

	start := time.Now()
	failed := false

	resumed, err := s.settlement.ResumeUnsettled(ctx, batchLimit)
	if err != nil {
		failed = true
		s.logg.Error(ctx, "resume unsettled draws", err)
	} else if resumed > 0 {
		s.logg.Info(s.logg.WithField(ctx, "resumed", resumed), "resumed unsettled draws")
	}

	stale, err := s.ledger.ListStalePending(ctx, s.pendingAge, batchLimit)
	if err != nil {
		failed = true
		s.logg.Error(ctx, "list stale pending transactions", err)
	} else {
		for _, txn := range stale {
			fields := map[string]any{
				"transaction_id": txn.ID.String(),
				"reference":      txn.Reference,
				"age":            time.Since(txn.CreatedAt).String(),
			}
			s.logg.Warn(s.logg.WithFields(s.logg.WithAccountID(ctx, txn.AccountID.String()), fields), "transaction stuck in pending")
		}
	}

	s.metrics.ObserveDuration(jobName, time.Since(start))
	if failed {
		s.metrics.IncFailure(jobName)
		return
	}
	s.metrics.IncSuccess(jobName)
}

func (s *Service) acquireLease(ctx context.Context) bool {
	if s.lease == nil {
		return true
	}
	ok, err := s.lease.SetNX(ctx, s.lease.LockKey(jobName), time.Now().UTC().Format(time.RFC3339Nano), s.pollInterval)
	if err != nil {
		// Run anyway: duplicated reconciliation is safe, skipped
		// reconciliation is not.
		s.logg.Warn(ctx, "reconciler lease check failed")
		return true
	}
	return ok
}

func (s *Service) releaseLease(ctx context.Context) {
	if s.lease == nil {
		return
	}
	if err := s.lease.Del(ctx, s.lease.LockKey(jobName)); err != nil {
		s.logg.Warn(ctx, "reconciler lease release failed")
	}
}
