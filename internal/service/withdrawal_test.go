package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitway/bitway-api/internal/domain"
	"github.com/bitway/bitway-api/internal/repository"
)

func TestRequestWithdrawalHoldsFunds(t *testing.T) {
	pool := setupTestDB(t)
	store := repository.NewStore(pool)
	notifier := &recordingNotifier{}
	svc := NewWithdrawalService(store, notifier, "+2348000000000")
	ctx := context.Background()

	userID := createCustomer(t, store, 10_000)
	accountID := createBankAccount(t, store, userID)

	txn, err := svc.RequestWithdrawal(ctx, WithdrawalRequest{
		UserID:        userID,
		ServiceID:     withdrawalServiceID,
		BankAccountID: accountID,
		Amount:        6_000,
		PIN:           testPIN,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusPending, txn.Status)
	assert.Equal(t, domain.TxTypeDebit, txn.Type)
	assert.Contains(t, txn.Reference, "WDR-")

	b := activeBalance(t, store, userID)
	assert.Equal(t, int64(10_000), b.Current)
	assert.Equal(t, int64(6_000), b.Book)
	assert.Equal(t, domain.BalanceHold, b.Kind)

	msgs := notifier.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "+2348000000000", msgs[0].To)

	// The held amount is no longer available for a second withdrawal.
	_, err = svc.RequestWithdrawal(ctx, WithdrawalRequest{
		UserID:        userID,
		ServiceID:     withdrawalServiceID,
		BankAccountID: accountID,
		Amount:        5_000,
		PIN:           testPIN,
	})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, 1, countTransactions(t, pool, userID))
}

func TestRequestWithdrawalInsufficientFundsCreatesNothing(t *testing.T) {
	pool := setupTestDB(t)
	store := repository.NewStore(pool)
	svc := NewWithdrawalService(store, nil, "")
	ctx := context.Background()

	userID := createCustomer(t, store, 1_000)
	accountID := createBankAccount(t, store, userID)
	before := activeBalance(t, store, userID)

	_, err := svc.RequestWithdrawal(ctx, WithdrawalRequest{
		UserID:        userID,
		ServiceID:     withdrawalServiceID,
		BankAccountID: accountID,
		Amount:        1_001,
		PIN:           testPIN,
	})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, 0, countTransactions(t, pool, userID))
	assert.Equal(t, before.ID, activeBalance(t, store, userID).ID)
}

func TestRequestWithdrawalValidation(t *testing.T) {
	pool := setupTestDB(t)
	store := repository.NewStore(pool)
	svc := NewWithdrawalService(store, nil, "")
	ctx := context.Background()

	userID := createCustomer(t, store, 5_000)
	otherID := createCustomer(t, store, 0)
	accountID := createBankAccount(t, store, userID)
	foreignAccount := createBankAccount(t, store, otherID)

	base := WithdrawalRequest{UserID: userID, ServiceID: withdrawalServiceID, BankAccountID: accountID, Amount: 100, PIN: testPIN}

	req := base
	req.Amount = 0
	_, err := svc.RequestWithdrawal(ctx, req)
	assert.ErrorIs(t, err, domain.ErrValidation)

	req = base
	req.PIN = "9999"
	_, err = svc.RequestWithdrawal(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidPIN)

	req = base
	req.ServiceID = sellBitcoinServiceID
	_, err = svc.RequestWithdrawal(ctx, req)
	assert.ErrorIs(t, err, domain.ErrValidation)

	req = base
	req.BankAccountID = foreignAccount
	_, err = svc.RequestWithdrawal(ctx, req)
	assert.ErrorIs(t, err, domain.ErrBankAccountNotFound)

	assert.Equal(t, 0, countTransactions(t, pool, userID))
}

func TestRequestWithdrawalRequestKeyIsIdempotent(t *testing.T) {
	pool := setupTestDB(t)
	store := repository.NewStore(pool)
	svc := NewWithdrawalService(store, nil, "")
	ctx := context.Background()

	userID := createCustomer(t, store, 5_000)
	accountID := createBankAccount(t, store, userID)
	req := WithdrawalRequest{UserID: userID, ServiceID: withdrawalServiceID, BankAccountID: accountID, Amount: 1_000, PIN: testPIN, RequestKey: "wd-key-1"}

	first, err := svc.RequestWithdrawal(ctx, req)
	require.NoError(t, err)
	second, err := svc.RequestWithdrawal(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, countTransactions(t, pool, userID))
	assert.Equal(t, int64(1_000), activeBalance(t, store, userID).Book)
}
