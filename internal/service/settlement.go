package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bitway/bitway-api/internal/domain"
	"github.com/bitway/bitway-api/internal/events"
	"github.com/bitway/bitway-api/internal/models"
	"github.com/bitway/bitway-api/internal/notify"
	"github.com/bitway/bitway-api/internal/observability"
	"github.com/bitway/bitway-api/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	tradeConfirmedSMS      = "Your trade has been successfully confirmed, please refresh your dashboard to view your wallet balance and initiate a withdrawal. Thanks for choosing BitWay"
	withdrawalConfirmedSMS = "Your withdraw request has been successfully confirmed. Thanks for choosing BitWay"
	withdrawalFailedSMS    = "Your withdraw request could not be completed and the funds are back in your wallet. Thanks for choosing BitWay"
)

// SettlementService moves pending transactions to a terminal state and applies their ledger effect.
type SettlementService struct {
	store    QueryStore
	audit    *AuditService
	notifier Notifier
	alerts   AlertPublisher
	now      func() time.Time
}

func NewSettlementService(store QueryStore, notifier Notifier, alerts AlertPublisher) *SettlementService {
	return &SettlementService{
		store:    store,
		audit:    NewAuditService(store),
		notifier: notifier,
		alerts:   alerts,
		now:      time.Now,
	}
}

// UpdateStatusRequest settles a transaction. UserID, Amount and ServiceName are optional
// cross-checks supplied by the admin console.
type UpdateStatusRequest struct {
	TransactionID uuid.UUID
	UserID        *uuid.UUID
	Status        string
	Amount        *domain.Amount
	ServiceName   string
	ActorID       *uuid.UUID
	// RequireKind restricts settlement to one kind of service when set.
	RequireKind domain.ServiceKind
}

// SettlementResult is the settled transaction plus the ledger row it produced, if any.
type SettlementResult struct {
	Transaction *models.Transaction `json:"transaction"`
	Balance     *models.Balance     `json:"balance,omitempty"`
	Replayed    bool                `json:"replayed"`
}

type settlementEffect struct {
	service *models.Service
	kind    domain.ServiceKind
	prev    string
}

// UpdateTransactionStatus settles a pending transaction. Replaying the same terminal
// status is a no-op; moving a settled transaction to a different status is a conflict.
func (s *SettlementService) UpdateTransactionStatus(ctx context.Context, req UpdateStatusRequest) (*SettlementResult, error) {
	next := normalizeState(req.Status)
	if !validTargetState(next) {
		return nil, domain.Validation("transaction/invalid-status", "status must be success or failed")
	}
	if req.Amount != nil && *req.Amount <= 0 {
		return nil, domain.Validation("request/invalid-amount", "amount must be greater than zero")
	}

	var (
		result SettlementResult
		effect settlementEffect
	)
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		result = SettlementResult{}

		row, err := qtx.GetTransactionForUpdate(ctx, repository.ToPgUUID(req.TransactionID))
		if err != nil {
			if repository.IsNotFound(err) {
				return domain.ErrTransactionNotFound
			}
			return fmt.Errorf("lock transaction: %w", err)
		}
		txn := row.Model()
		if req.UserID != nil && txn.UserID != *req.UserID {
			return domain.ErrTransactionNotFound
		}

		if normalizeState(txn.Status) == next {
			result.Transaction = txn
			result.Replayed = true
			return nil
		}
		if isTerminal(txn.Status) || !canTransition(txn.Status, next) {
			return domain.ErrTransactionSettled
		}

		svcRow, err := qtx.GetServiceIncludingDeleted(ctx, row.ServiceID)
		if err != nil {
			return fmt.Errorf("get transaction service: %w", err)
		}
		svc := svcRow.Model()
		kind := svc.Kind()
		if name := strings.TrimSpace(req.ServiceName); name != "" && !strings.EqualFold(name, svc.Name) {
			return domain.Validation("transaction/service-mismatch", "service does not match the transaction")
		}
		if req.RequireKind != "" && kind != req.RequireKind {
			return domain.Validation("transaction/wrong-service", fmt.Sprintf("transaction is not a %s transaction", req.RequireKind))
		}

		amount := txn.Amount
		var (
			balance *models.Balance
			linked  *uuid.UUID
		)
		mutation := Mutation{UserID: txn.UserID, TransactionID: &txn.ID}

		switch next {
		case domain.TxStatusSuccess:
			switch {
			case kind.IsSell():
				if req.Amount != nil {
					amount = *req.Amount
				}
				mutation.Kind = domain.BalanceCredit
			case kind == domain.ServiceKindWithdrawal:
				if req.Amount != nil && *req.Amount != amount {
					return domain.Validation("transaction/amount-mismatch", "amount does not match the withdrawal")
				}
				mutation.Kind = domain.BalanceSettle
			default:
				return domain.Validation("transaction/no-settlement-rule", fmt.Sprintf("no settlement rule for service %q", svc.Name))
			}
			mutation.Amount = amount
			balance, err = applyMutation(ctx, qtx, mutation)
			if err != nil {
				return err
			}
			linked = &balance.ID
		case domain.TxStatusFailed:
			if kind == domain.ServiceKindWithdrawal {
				mutation.Kind = domain.BalanceRelease
				mutation.Amount = amount
				balance, err = applyMutation(ctx, qtx, mutation)
				if err != nil {
					return err
				}
			}
		}

		settled, err := qtx.SettleTransaction(ctx, repository.SettleTransactionParams{
			ID:        row.ID,
			Status:    next,
			Amount:    int64(amount),
			BalanceID: repository.NullUUID(linked),
		})
		if err != nil {
			if repository.IsNotFound(err) {
				return domain.ErrTransactionSettled
			}
			return fmt.Errorf("settle transaction: %w", err)
		}

		if err := s.audit.Record(ctx, qtx, auditEntry{Entity: auditEntityTransaction, EntityID: txn.ID, Actor: req.ActorID, Action: "status_updated", From: txn.Status, To: next, Meta: map[string]any{
			"amount":         amount.String(),
			"service":        svc.Name,
			"kind":           string(kind),
			"previous_value": txn.Amount.String(),
		}}); err != nil {
			return err
		}

		result.Transaction = settled.Model()
		result.Balance = balance
		effect = settlementEffect{service: svc, kind: kind, prev: txn.Status}
		return nil
	})
	if err != nil {
		observability.IncrementSettlement("rejected")
		return nil, mapTxError(err)
	}

	if result.Replayed {
		observability.IncrementSettlement("replayed")
		return &result, nil
	}
	observability.IncrementSettlement(next)
	if next == domain.TxStatusSuccess {
		observability.AddSettledVolume(string(effect.kind), int64(result.Transaction.Amount))
	}
	s.afterSettlement(ctx, result.Transaction, effect)
	return &result, nil
}

// afterSettlement runs post-commit side effects. Failures are logged only.
func (s *SettlementService) afterSettlement(ctx context.Context, txn *models.Transaction, effect settlementEffect) {
	logger := zap.L().With(zap.String("transaction_id", txn.ID.String()), zap.String("status", txn.Status))

	if msg := settlementSMS(txn.Status, effect.kind); msg != "" && s.notifier != nil {
		user, err := s.store.Queries().GetUser(ctx, repository.ToPgUUID(txn.UserID))
		switch {
		case err != nil:
			logger.Warn("settlement sms skipped, user lookup failed", zap.Error(err))
		case user.Phone == "":
			logger.Info("settlement sms skipped, user has no phone")
		default:
			if err := s.notifier.Publish(ctx, notify.SMS(user.Phone, msg)); err != nil {
				logger.Warn("failed to queue settlement sms", zap.Error(err))
			}
		}
	}

	if s.alerts == nil || txn.Status != domain.TxStatusSuccess {
		return
	}
	settledAt := s.now()
	if txn.CompletedAt != nil {
		settledAt = *txn.CompletedAt
	}
	published, err := s.alerts.PublishSettlement(ctx, events.LargeSettlementAlert{
		TransactionID: txn.ID,
		UserID:        txn.UserID,
		Service:       effect.service.Name,
		Kind:          string(effect.kind),
		Amount:        txn.Amount,
		Status:        txn.Status,
		SettledAt:     settledAt,
	})
	if err != nil {
		logger.Warn("failed to publish settlement alert", zap.Error(err))
		return
	}
	if published {
		logger.Info("large settlement alert published", zap.String("amount", txn.Amount.String()))
	}
}

func settlementSMS(status string, kind domain.ServiceKind) string {
	switch {
	case status == domain.TxStatusSuccess && kind.IsSell():
		return tradeConfirmedSMS
	case status == domain.TxStatusSuccess && kind == domain.ServiceKindWithdrawal:
		return withdrawalConfirmedSMS
	case status == domain.TxStatusFailed && kind == domain.ServiceKindWithdrawal:
		return withdrawalFailedSMS
	default:
		return ""
	}
}
