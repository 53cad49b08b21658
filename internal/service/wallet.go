package service

import (
	"context"
	"fmt"

	"github.com/bitway/bitway-api/internal/domain"
	"github.com/bitway/bitway-api/internal/models"
	"github.com/bitway/bitway-api/internal/repository"
	"github.com/google/uuid"
)

// WalletService serves the customer's own balance and statement.
type WalletService struct {
	store  QueryStore
	ledger *LedgerService
}

func NewWalletService(store QueryStore) *WalletService {
	return &WalletService{
		store:  store,
		ledger: NewLedgerService(store),
	}
}

// GetBalance returns the active balance split into held and available funds.
func (s *WalletService) GetBalance(ctx context.Context, userID uuid.UUID) (*models.WalletView, error) {
	user, err := s.store.Queries().GetUser(ctx, repository.ToPgUUID(userID))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	balance, err := s.ledger.Active(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.WalletView{
		Current:   balance.Current,
		Held:      balance.Book,
		Available: balance.Available(),
		Visible:   user.BalanceVisible,
		UpdatedAt: balance.CreatedAt,
	}, nil
}

// GetStatement returns the user's transactions, newest first.
func (s *WalletService) GetStatement(ctx context.Context, userID uuid.UUID, page, perPage int) (*models.Page[models.Transaction], error) {
	p := repository.NewPagination(page, perPage)
	queries := s.store.Queries()
	id := repository.ToPgUUID(userID)

	rows, err := queries.ListUserTransactions(ctx, id, p.Limit(), p.Offset())
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	total, err := queries.CountUserTransactions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("count transactions: %w", err)
	}
	return &models.Page[models.Transaction]{
		Items:   repository.TransactionModels(rows),
		Page:    p.Page,
		PerPage: p.PerPage,
		Total:   total,
	}, nil
}

// GetTransaction returns one of the user's own transactions.
func (s *WalletService) GetTransaction(ctx context.Context, userID, transactionID uuid.UUID) (*models.Transaction, error) {
	row, err := s.store.Queries().GetTransaction(ctx, repository.ToPgUUID(transactionID))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	if repository.FromPgUUID(row.UserID) != userID {
		return nil, domain.ErrTransactionNotFound
	}
	return row.Model(), nil
}

// History returns recent ledger rows for the user.
func (s *WalletService) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.Balance, error) {
	if limit <= 0 || limit > repository.MaxPerPage {
		limit = repository.DefaultPerPage
	}
	return s.ledger.History(ctx, userID, int32(limit))
}
