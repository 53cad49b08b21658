package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitway/bitway-api/internal/domain"
	"github.com/bitway/bitway-api/internal/models"
	"github.com/bitway/bitway-api/internal/observability"
	"github.com/bitway/bitway-api/internal/repository"
	"github.com/google/uuid"
)

// Mutation describes one append to a user's ledger.
type Mutation struct {
	UserID        uuid.UUID
	Kind          string
	Amount        domain.Amount
	TransactionID *uuid.UUID
}

// LedgerService appends balance rows. Each mutation deactivates the active row and
// inserts its successor in the same database transaction.
type LedgerService struct {
	store QueryStore
}

func NewLedgerService(store QueryStore) *LedgerService {
	return &LedgerService{store: store}
}

// Credit adds amount to the user's balance.
func (s *LedgerService) Credit(ctx context.Context, userID uuid.UUID, amount domain.Amount) (*models.Balance, error) {
	return s.Apply(ctx, Mutation{UserID: userID, Kind: domain.BalanceCredit, Amount: amount})
}

// Debit removes amount from the user's available balance.
func (s *LedgerService) Debit(ctx context.Context, userID uuid.UUID, amount domain.Amount) (*models.Balance, error) {
	return s.Apply(ctx, Mutation{UserID: userID, Kind: domain.BalanceDebit, Amount: amount})
}

// Apply runs a single mutation in its own transaction and returns the new active row.
func (s *LedgerService) Apply(ctx context.Context, m Mutation) (*models.Balance, error) {
	var balance *models.Balance
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		b, err := applyMutation(ctx, qtx, m)
		if err != nil {
			return err
		}
		balance = b
		return nil
	})
	if err != nil {
		return nil, mapTxError(err)
	}
	return balance, nil
}

// Active returns the user's current active balance row.
func (s *LedgerService) Active(ctx context.Context, userID uuid.UUID) (*models.Balance, error) {
	row, err := s.store.Queries().GetActiveBalance(ctx, repository.ToPgUUID(userID))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.ErrBalanceNotFound
		}
		return nil, fmt.Errorf("get active balance: %w", err)
	}
	return row.Model(), nil
}

// History returns the most recent ledger rows for a user, newest first.
func (s *LedgerService) History(ctx context.Context, userID uuid.UUID, limit int32) ([]models.Balance, error) {
	rows, err := s.store.Queries().ListBalanceHistory(ctx, repository.ToPgUUID(userID), limit)
	if err != nil {
		return nil, fmt.Errorf("list balance history: %w", err)
	}
	out := make([]models.Balance, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row.Model())
	}
	return out, nil
}

// applyMutation must run inside a transaction. The user row lock serialises writers
// for the same user; the seq and active-row unique constraints catch anything that slips past it.
func applyMutation(ctx context.Context, qtx *repository.Queries, m Mutation) (*models.Balance, error) {
	if m.Amount <= 0 {
		return nil, domain.Validation("ledger/invalid-amount", "amount must be greater than zero")
	}

	userID := repository.ToPgUUID(m.UserID)
	if err := qtx.LockUser(ctx, userID); err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("lock user: %w", err)
	}

	prev, err := qtx.GetActiveBalance(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.ErrBalanceNotFound
		}
		return nil, fmt.Errorf("get active balance: %w", err)
	}

	book, current, err := nextBalance(m.Kind, domain.Amount(prev.Book), domain.Amount(prev.Current), m.Amount)
	if err != nil {
		return nil, err
	}

	rows, err := qtx.DeactivateBalance(ctx, prev.ID)
	if err != nil {
		return nil, fmt.Errorf("deactivate balance: %w", err)
	}
	if err := requireExactlyOne(rows, "deactivate balance"); err != nil {
		return nil, domain.ErrConcurrentUpdate.WithCause(err)
	}

	next, err := qtx.InsertBalance(ctx, repository.InsertBalanceParams{
		ID:            repository.ToPgUUID(uuid.New()),
		UserID:        userID,
		Seq:           prev.Seq + 1,
		Previous:      prev.Current,
		Book:          int64(book),
		Current:       int64(current),
		Kind:          m.Kind,
		TransactionID: repository.NullUUID(m.TransactionID),
	})
	if err != nil {
		if repository.IsUniqueViolation(err, "balances_user_seq_key") || repository.IsUniqueViolation(err, "balances_one_active_idx") {
			return nil, domain.ErrConcurrentUpdate.WithCause(err)
		}
		return nil, fmt.Errorf("insert balance: %w", err)
	}

	observability.IncrementLedgerMutation(m.Kind)
	return next.Model(), nil
}

// nextBalance computes the successor (book, current) pair for a mutation kind.
func nextBalance(kind string, book, current, amount domain.Amount) (domain.Amount, domain.Amount, error) {
	available := current - book
	switch kind {
	case domain.BalanceCredit:
		return book, current + amount, nil
	case domain.BalanceDebit:
		if amount > available {
			return 0, 0, domain.ErrInsufficientFunds
		}
		return book, current - amount, nil
	case domain.BalanceHold:
		if amount > available {
			return 0, 0, domain.ErrInsufficientFunds
		}
		return book + amount, current, nil
	case domain.BalanceRelease:
		if amount > book {
			return 0, 0, errors.New("release exceeds held funds")
		}
		return book - amount, current, nil
	case domain.BalanceSettle:
		if amount > book {
			return 0, 0, errors.New("settlement exceeds held funds")
		}
		return book - amount, current - amount, nil
	default:
		return 0, 0, fmt.Errorf("unknown ledger mutation %q", kind)
	}
}
