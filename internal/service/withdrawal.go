package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitway/bitway-api/internal/auth"
	"github.com/bitway/bitway-api/internal/domain"
	"github.com/bitway/bitway-api/internal/models"
	"github.com/bitway/bitway-api/internal/notify"
	"github.com/bitway/bitway-api/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"
)

const operatorWithdrawalSMS = "Hello Admin! A user initiated a withdrawal. Please attend to it. Thanks"

// WithdrawalService accepts withdrawal requests and reserves the funds until an operator settles them.
type WithdrawalService struct {
	store         QueryStore
	audit         *AuditService
	notifier      Notifier
	operatorPhone string
	now           func() time.Time
}

func NewWithdrawalService(store QueryStore, notifier Notifier, operatorPhone string) *WithdrawalService {
	return &WithdrawalService{
		store:         store,
		audit:         NewAuditService(store),
		notifier:      notifier,
		operatorPhone: operatorPhone,
		now:           time.Now,
	}
}

// WithdrawalRequest holds the parameters for a withdrawal.
type WithdrawalRequest struct {
	UserID        uuid.UUID
	ServiceID     uuid.UUID
	BankAccountID uuid.UUID
	Amount        domain.Amount
	PIN           string
	RequestKey    string
}

// RequestWithdrawal validates the request, creates a pending debit transaction and
// holds the amount against the wallet. If the hold fails nothing is persisted.
func (s *WithdrawalService) RequestWithdrawal(ctx context.Context, req WithdrawalRequest) (*models.Transaction, error) {
	if req.Amount <= 0 {
		return nil, domain.Validation("request/invalid-amount", "amount must be greater than zero")
	}

	queries := s.store.Queries()
	user, err := queries.GetUser(ctx, repository.ToPgUUID(req.UserID))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !user.HasTransactionPin {
		return nil, domain.Validation("auth/pin-not-set", "set a transaction pin before making a withdrawal")
	}
	ok, err := auth.CheckSecret(user.TransactionPinHash, req.PIN)
	if err != nil {
		return nil, fmt.Errorf("check pin: %w", err)
	}
	if !ok {
		return nil, domain.ErrInvalidPIN
	}

	svc, err := loadActiveService(ctx, queries, req.ServiceID)
	if err != nil {
		return nil, err
	}
	if svc.Kind() != domain.ServiceKindWithdrawal {
		return nil, domain.Validation("service/not-withdrawal", "service is not a withdrawal service")
	}

	account, err := queries.GetBankAccount(ctx, repository.ToPgUUID(req.BankAccountID))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.ErrBankAccountNotFound
		}
		return nil, fmt.Errorf("get bank account: %w", err)
	}
	if repository.FromPgUUID(account.UserID) != req.UserID || !account.Status {
		return nil, domain.ErrBankAccountNotFound
	}

	key := optionalKey(req.RequestKey)
	if existing, err := findByRequestKey(ctx, queries, req.UserID, key); err != nil || existing != nil {
		return existing, err
	}

	transactionID := uuid.New()
	var created *models.Transaction
	err = s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		row, err := qtx.CreateTransaction(ctx, repository.CreateTransactionParams{
			ID:            repository.ToPgUUID(transactionID),
			UserID:        repository.ToPgUUID(req.UserID),
			ServiceID:     repository.ToPgUUID(svc.ID),
			Reference:     newReference("WDR", s.now()),
			RequestKey:    pgtype.Text{String: key, Valid: key != ""},
			Amount:        int64(req.Amount),
			BankAccountID: account.ID,
			Type:          domain.TxTypeDebit,
			Narration:     fmt.Sprintf("Withdrawal to %s %s", account.BankName, account.AccountNumber),
			Status:        domain.TxStatusPending,
		})
		if err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}

		if _, err := applyMutation(ctx, qtx, Mutation{
			UserID:        req.UserID,
			Kind:          domain.BalanceHold,
			Amount:        req.Amount,
			TransactionID: &transactionID,
		}); err != nil {
			return err
		}

		if err := s.audit.Record(ctx, qtx, auditEntry{Entity: auditEntityTransaction, EntityID: transactionID, Actor: &req.UserID, Action: "created", To: domain.TxStatusPending, Meta: map[string]any{
			"amount":          req.Amount.String(),
			"bank_account_id": req.BankAccountID.String(),
		}}); err != nil {
			return err
		}

		created = row.Model()
		return nil
	})
	if err != nil {
		if key != "" && repository.IsUniqueViolation(err, "transactions_request_key_idx") {
			return findByRequestKey(ctx, queries, req.UserID, key)
		}
		return nil, mapTxError(err)
	}

	zap.L().Info("withdrawal requested",
		zap.String("transaction_id", created.ID.String()),
		zap.String("user_id", req.UserID.String()),
		zap.String("amount", req.Amount.String()),
	)
	notifyOperator(ctx, s.notifier, s.operatorPhone, operatorWithdrawalSMS)
	return created, nil
}

func loadActiveService(ctx context.Context, queries *repository.Queries, id uuid.UUID) (*models.Service, error) {
	row, err := queries.GetService(ctx, repository.ToPgUUID(id))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.ErrServiceNotFound
		}
		return nil, fmt.Errorf("get service: %w", err)
	}
	if !row.Status {
		return nil, domain.Validation("service/inactive", "service is currently unavailable")
	}
	return row.Model(), nil
}

// findByRequestKey returns the transaction already created for key, or nil.
func findByRequestKey(ctx context.Context, queries *repository.Queries, userID uuid.UUID, key string) (*models.Transaction, error) {
	if key == "" {
		return nil, nil
	}
	row, err := queries.GetTransactionByRequestKey(ctx, repository.ToPgUUID(userID), key)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transaction by request key: %w", err)
	}
	return row.Model(), nil
}

func notifyOperator(ctx context.Context, notifier Notifier, phone, message string) {
	if notifier == nil || phone == "" {
		return
	}
	if err := notifier.Publish(ctx, notify.SMS(phone, message)); err != nil {
		zap.L().Warn("failed to queue operator sms", zap.Error(err))
	}
}
