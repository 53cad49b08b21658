package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bitway/bitway-api/internal/domain"
	"github.com/bitway/bitway-api/internal/models"
	"github.com/bitway/bitway-api/internal/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const bankListCacheKey = "bitway:banks:ng"

// BankService manages payout bank accounts and the bank directory.
type BankService struct {
	store    QueryStore
	resolver BankResolver
	cache    *redis.Client
	cacheTTL time.Duration
}

// NewBankService builds the service. cache may be nil, in which case the bank list is fetched on every call.
func NewBankService(store QueryStore, resolver BankResolver, cache *redis.Client, cacheTTL time.Duration) *BankService {
	return &BankService{
		store:    store,
		resolver: resolver,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

type BankAccountInput struct {
	BankName      string
	BankCode      string
	AccountNumber string
}

func (in *BankAccountInput) normalize() error {
	in.BankName = strings.TrimSpace(in.BankName)
	in.BankCode = strings.TrimSpace(in.BankCode)
	in.AccountNumber = strings.TrimSpace(in.AccountNumber)
	if in.BankCode == "" {
		return domain.Validation("bank-account/bank-required", "bank code is required")
	}
	if !isDigits(in.AccountNumber, 10) {
		return domain.Validation("bank-account/invalid-number", "account number must be 10 digits")
	}
	return nil
}

// Resolve returns the upper-cased account holder name registered at the bank.
func (s *BankService) Resolve(ctx context.Context, accountNumber, bankCode string) (string, error) {
	in := BankAccountInput{BankCode: bankCode, AccountNumber: accountNumber}
	if err := in.normalize(); err != nil {
		return "", err
	}
	name, err := s.resolver.ResolveAccount(ctx, in.AccountNumber, in.BankCode)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(strings.TrimSpace(name)), nil
}

func (s *BankService) ListAccounts(ctx context.Context, userID uuid.UUID) ([]models.BankAccount, error) {
	rows, err := s.store.Queries().ListUserBankAccounts(ctx, repository.ToPgUUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list bank accounts: %w", err)
	}
	out := make([]models.BankAccount, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row.Model())
	}
	return out, nil
}

// CreateAccount resolves the account name with the payment provider and stores the account.
func (s *BankService) CreateAccount(ctx context.Context, userID uuid.UUID, in BankAccountInput) (*models.BankAccount, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	if in.BankName == "" {
		return nil, domain.Validation("bank-account/bank-required", "bank name is required")
	}
	name, err := s.Resolve(ctx, in.AccountNumber, in.BankCode)
	if err != nil {
		return nil, err
	}

	row, err := s.store.Queries().CreateBankAccount(ctx, repository.CreateBankAccountParams{
		ID:            repository.ToPgUUID(uuid.New()),
		UserID:        repository.ToPgUUID(userID),
		BankName:      in.BankName,
		BankCode:      in.BankCode,
		AccountNumber: in.AccountNumber,
		AccountName:   name,
	})
	if err != nil {
		if repository.IsUniqueViolation(err, "bank_accounts_active_idx") {
			return nil, domain.Conflict("bank-account/exists", "this bank account has already been added")
		}
		return nil, fmt.Errorf("create bank account: %w", err)
	}
	return row.Model(), nil
}

// GetAccount returns an active account owned by userID.
func (s *BankService) GetAccount(ctx context.Context, userID, accountID uuid.UUID) (*models.BankAccount, error) {
	row, err := s.store.Queries().GetBankAccount(ctx, repository.ToPgUUID(accountID))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.ErrBankAccountNotFound
		}
		return nil, fmt.Errorf("get bank account: %w", err)
	}
	if repository.FromPgUUID(row.UserID) != userID || !row.Status {
		return nil, domain.ErrBankAccountNotFound
	}
	return row.Model(), nil
}

// UpdateAccount edits an account; a changed number or bank re-resolves the holder name.
func (s *BankService) UpdateAccount(ctx context.Context, userID, accountID uuid.UUID, in BankAccountInput) (*models.BankAccount, error) {
	current, err := s.GetAccount(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.BankCode) == "" {
		in.BankCode = current.BankCode
	}
	if strings.TrimSpace(in.AccountNumber) == "" {
		in.AccountNumber = current.AccountNumber
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	if in.BankName == "" {
		in.BankName = current.BankName
	}

	name := current.AccountName
	if in.AccountNumber != current.AccountNumber || in.BankCode != current.BankCode {
		name, err = s.Resolve(ctx, in.AccountNumber, in.BankCode)
		if err != nil {
			return nil, err
		}
	}

	row, err := s.store.Queries().UpdateBankAccount(ctx, repository.UpdateBankAccountParams{
		ID:            repository.ToPgUUID(accountID),
		UserID:        repository.ToPgUUID(userID),
		BankName:      in.BankName,
		BankCode:      in.BankCode,
		AccountNumber: in.AccountNumber,
		AccountName:   name,
	})
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.ErrBankAccountNotFound
		}
		if repository.IsUniqueViolation(err, "bank_accounts_active_idx") {
			return nil, domain.Conflict("bank-account/exists", "this bank account has already been added")
		}
		return nil, fmt.Errorf("update bank account: %w", err)
	}
	return row.Model(), nil
}

// DeleteAccount deactivates the account. Past transactions keep referencing it.
func (s *BankService) DeleteAccount(ctx context.Context, userID, accountID uuid.UUID) error {
	rows, err := s.store.Queries().DeactivateBankAccount(ctx, repository.ToPgUUID(accountID), repository.ToPgUUID(userID))
	if err != nil {
		return fmt.Errorf("deactivate bank account: %w", err)
	}
	if rows == 0 {
		return domain.ErrBankAccountNotFound
	}
	return nil
}

// ListBanks returns the provider's bank directory, served from Redis when cached.
func (s *BankService) ListBanks(ctx context.Context) ([]models.Bank, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, bankListCacheKey).Bytes()
		switch {
		case err == nil:
			var banks []models.Bank
			if jsonErr := json.Unmarshal(raw, &banks); jsonErr == nil {
				return banks, nil
			}
		case !errors.Is(err, redis.Nil):
			zap.L().Warn("bank list cache read failed", zap.Error(err))
		}
	}

	banks, err := s.resolver.ListBanks(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && len(banks) > 0 {
		if raw, err := json.Marshal(banks); err == nil {
			if err := s.cache.Set(ctx, bankListCacheKey, raw, s.cacheTTL).Err(); err != nil {
				zap.L().Warn("bank list cache write failed", zap.Error(err))
			}
		}
	}
	return banks, nil
}
