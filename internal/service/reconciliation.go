package service

import (
	"context"
	"fmt"

	"github.com/bitway/bitway-api/internal/observability"
	"github.com/bitway/bitway-api/internal/repository"
	"go.uber.org/zap"
)

const chainBreakScanLimit = 100

// ReconciliationReport summarises one integrity run.
type ReconciliationReport struct {
	ActiveRowAnomalies int
	ChainBreaks        int
	PendingTxns        int64
}

// Clean reports whether no integrity violation was found.
func (r ReconciliationReport) Clean() bool {
	return r.ActiveRowAnomalies == 0 && r.ChainBreaks == 0
}

// ReconciliationService verifies ledger integrity invariants.
type ReconciliationService struct {
	store QueryStore
}

// NewReconciliationService creates a reconciliation service.
func NewReconciliationService(store QueryStore) *ReconciliationService {
	return &ReconciliationService{store: store}
}

// Run checks that every user has exactly one active balance row and that each
// row's previous value carries on from the row before it.
func (s *ReconciliationService) Run(ctx context.Context) (ReconciliationReport, error) {
	var report ReconciliationReport
	queries := s.store.Queries()

	anomalies, err := queries.ListActiveBalanceAnomalies(ctx)
	if err != nil {
		return report, fmt.Errorf("list active balance anomalies: %w", err)
	}
	for _, a := range anomalies {
		observability.IncrementLedgerIntegrityViolation("active_rows")
		zap.L().Error("CRITICAL: user does not have exactly one active balance row",
			zap.String("user_id", repository.FromPgUUID(a.UserID).String()),
			zap.Int64("active_rows", a.ActiveRows),
		)
	}
	report.ActiveRowAnomalies = len(anomalies)

	breaks, err := queries.ListBalanceChainBreaks(ctx, chainBreakScanLimit)
	if err != nil {
		return report, fmt.Errorf("list balance chain breaks: %w", err)
	}
	for _, b := range breaks {
		observability.IncrementLedgerIntegrityViolation("chain")
		zap.L().Error("CRITICAL: balance chain broken",
			zap.String("user_id", repository.FromPgUUID(b.UserID).String()),
			zap.Int64("seq", b.Seq),
			zap.Int64("prior_seq", b.PriorSeq),
			zap.Int64("previous", b.Previous),
			zap.Int64("prior_current", b.PriorCurrent),
		)
	}
	report.ChainBreaks = len(breaks)

	pending, err := queries.CountPendingTransactions(ctx)
	if err != nil {
		zap.L().Warn("failed to count pending transactions", zap.Error(err))
	} else {
		observability.SetPendingTransactions(pending)
		report.PendingTxns = pending
	}

	if report.Clean() {
		zap.L().Info("ledger reconciled", zap.Int64("pending_transactions", report.PendingTxns))
	}
	return report, nil
}
