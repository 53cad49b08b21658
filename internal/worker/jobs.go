package worker

import (
	"context"
	"time"

	"github.com/bitway/bitway-api/internal/observability"
	"github.com/bitway/bitway-api/internal/service"
	"go.uber.org/zap"
)

const defaultJobTimeout = 5 * time.Minute

// Reconciler verifies ledger integrity.
type Reconciler interface {
	Run(ctx context.Context) (service.ReconciliationReport, error)
}

// Purger deletes expired idempotency records.
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}

// Jobs holds the scheduled maintenance tasks.
type Jobs struct {
	reconciler Reconciler
	purger     Purger
	timeout    time.Duration
}

func NewJobs(reconciler Reconciler, purger Purger) *Jobs {
	return &Jobs{reconciler: reconciler, purger: purger, timeout: defaultJobTimeout}
}

// WithTimeout bounds each job run.
func (j *Jobs) WithTimeout(timeout time.Duration) *Jobs {
	if timeout > 0 {
		j.timeout = timeout
	}
	return j
}

// Reconcile runs one ledger reconciliation pass.
func (j *Jobs) Reconcile() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	report, err := j.reconciler.Run(ctx)
	if err != nil {
		observability.IncrementWorkerRun("reconciliation", "failed")
		zap.L().Error("reconciliation run failed", zap.Error(err))
		return
	}
	result := "success"
	if !report.Clean() {
		result = "violations"
	}
	observability.IncrementWorkerRun("reconciliation", result)
}

// PurgeIdempotencyKeys removes idempotency records older than their TTL.
func (j *Jobs) PurgeIdempotencyKeys() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	removed, err := j.purger.Purge(ctx)
	if err != nil {
		observability.IncrementWorkerRun("idempotency_purge", "failed")
		zap.L().Error("idempotency purge failed", zap.Error(err))
		return
	}
	observability.IncrementWorkerRun("idempotency_purge", "success")
	if removed > 0 {
		zap.L().Info("purged idempotency keys", zap.Int64("removed", removed))
	}
}
