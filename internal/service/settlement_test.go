package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitway/bitway-api/internal/domain"
	"github.com/bitway/bitway-api/internal/repository"
)

func submitBitcoinTrade(t *testing.T, store *repository.Store, userID uuid.UUID, usd string) uuid.UUID {
	t.Helper()
	trades := NewTradeService(store, nil, nil, "")
	txn, err := trades.SubmitTrade(context.Background(), TradeRequest{
		UserID:    userID,
		ServiceID: sellBitcoinServiceID,
		Asset:     domain.AssetBitcoin,
		USD:       decimal.RequireFromString(usd),
	})
	require.NoError(t, err)
	return txn.ID
}

func TestSettleTradeSuccessCreditsWallet(t *testing.T) {
	pool := setupTestDB(t)
	store := repository.NewStore(pool)
	notifier := &recordingNotifier{}
	alerts := &recordingAlerts{threshold: 1_000_000}
	settlement := NewSettlementService(store, notifier, alerts)
	ctx := context.Background()

	userID := createCustomer(t, store, 0)
	txID := submitBitcoinTrade(t, store, userID, "10")

	res, err := settlement.UpdateTransactionStatus(ctx, UpdateStatusRequest{
		TransactionID: txID,
		UserID:        &userID,
		Status:        "success",
		ServiceName:   "sell bitcoin",
	})
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.Equal(t, domain.TxStatusSuccess, res.Transaction.Status)
	require.NotNil(t, res.Balance)
	require.NotNil(t, res.Transaction.BalanceID)
	assert.Equal(t, res.Balance.ID, *res.Transaction.BalanceID)
	assert.NotNil(t, res.Transaction.CompletedAt)

	// 10 USD at 1,500.00 NGN/$ is 15,000.00 NGN.
	assert.Equal(t, int64(1_500_000), activeBalance(t, store, userID).Current)
	assert.Len(t, notifier.Messages(), 1)
	assert.Len(t, alerts.Alerts(), 1)

	replay, err := settlement.UpdateTransactionStatus(ctx, UpdateStatusRequest{TransactionID: txID, Status: "success"})
	require.NoError(t, err)
	assert.True(t, replay.Replayed)
	assert.Equal(t, int64(1_500_000), activeBalance(t, store, userID).Current)

	_, err = settlement.UpdateTransactionStatus(ctx, UpdateStatusRequest{TransactionID: txID, Status: "failed"})
	assert.ErrorIs(t, err, domain.ErrTransactionSettled)
}

func TestSettleTradeWithAdjustedAmount(t *testing.T) {
	pool := setupTestDB(t)
	store := repository.NewStore(pool)
	settlement := NewSettlementService(store, nil, nil)
	ctx := context.Background()

	userID := createCustomer(t, store, 0)
	txID := submitBitcoinTrade(t, store, userID, "10")
	adjusted := domain.Amount(1_400_000)

	res, err := settlement.UpdateTransactionStatus(ctx, UpdateStatusRequest{TransactionID: txID, Status: "success", Amount: &adjusted})
	require.NoError(t, err)
	assert.Equal(t, adjusted, res.Transaction.Amount)
	assert.Equal(t, int64(1_400_000), activeBalance(t, store, userID).Current)
}

func TestSettleRejectsWrongOwnerAndService(t *testing.T) {
	pool := setupTestDB(t)
	store := repository.NewStore(pool)
	settlement := NewSettlementService(store, nil, nil)
	ctx := context.Background()

	userID := createCustomer(t, store, 0)
	stranger := createCustomer(t, store, 0)
	txID := submitBitcoinTrade(t, store, userID, "1")

	_, err := settlement.UpdateTransactionStatus(ctx, UpdateStatusRequest{TransactionID: txID, UserID: &stranger, Status: "success"})
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)

	_, err = settlement.UpdateTransactionStatus(ctx, UpdateStatusRequest{TransactionID: txID, Status: "success", ServiceName: "Withdrawal"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = settlement.UpdateTransactionStatus(ctx, UpdateStatusRequest{TransactionID: txID, Status: "success", RequireKind: domain.ServiceKindWithdrawal})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = settlement.UpdateTransactionStatus(ctx, UpdateStatusRequest{TransactionID: txID, Status: "processing"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Equal(t, int64(0), activeBalance(t, store, userID).Current)
}

func TestSettleWithdrawalSuccessAndFailure(t *testing.T) {
	pool := setupTestDB(t)
	store := repository.NewStore(pool)
	withdrawals := NewWithdrawalService(store, nil, "")
	settlement := NewSettlementService(store, nil, nil)
	ctx := context.Background()

	userID := createCustomer(t, store, 10_000)
	accountID := createBankAccount(t, store, userID)

	first, err := withdrawals.RequestWithdrawal(ctx, WithdrawalRequest{UserID: userID, ServiceID: withdrawalServiceID, BankAccountID: accountID, Amount: 3_000, PIN: testPIN})
	require.NoError(t, err)
	second, err := withdrawals.RequestWithdrawal(ctx, WithdrawalRequest{UserID: userID, ServiceID: withdrawalServiceID, BankAccountID: accountID, Amount: 2_000, PIN: testPIN})
	require.NoError(t, err)

	wrong := domain.Amount(2_999)
	_, err = settlement.UpdateTransactionStatus(ctx, UpdateStatusRequest{TransactionID: first.ID, Status: "success", Amount: &wrong})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = settlement.UpdateTransactionStatus(ctx, UpdateStatusRequest{TransactionID: first.ID, Status: "success", RequireKind: domain.ServiceKindWithdrawal})
	require.NoError(t, err)
	b := activeBalance(t, store, userID)
	assert.Equal(t, int64(7_000), b.Current)
	assert.Equal(t, int64(2_000), b.Book)

	res, err := settlement.UpdateTransactionStatus(ctx, UpdateStatusRequest{TransactionID: second.ID, Status: "failed"})
	require.NoError(t, err)
	assert.Nil(t, res.Transaction.BalanceID)
	b = activeBalance(t, store, userID)
	assert.Equal(t, int64(7_000), b.Current)
	assert.Equal(t, int64(0), b.Book)
	assert.Equal(t, domain.BalanceRelease, b.Kind)
}

func TestSettleServiceWithoutRule(t *testing.T) {
	pool := setupTestDB(t)
	store := repository.NewStore(pool)
	ctx := context.Background()

	userID := createCustomer(t, store, 0)
	catalog := NewCatalogService(store)
	giftCards, err := catalog.Create(ctx, userID, ServiceInput{Name: "Gift Cards", Rate: 100})
	require.NoError(t, err)

	txID := uuid.New()
	_, err = store.Queries().CreateTransaction(ctx, repository.CreateTransactionParams{
		ID:        repository.ToPgUUID(txID),
		UserID:    repository.ToPgUUID(userID),
		ServiceID: repository.ToPgUUID(giftCards.ID),
		Reference: "GFT-1",
		Amount:    500,
		Type:      domain.TxTypeCredit,
		Status:    domain.TxStatusPending,
	})
	require.NoError(t, err)

	_, err = NewSettlementService(store, nil, nil).UpdateTransactionStatus(ctx, UpdateStatusRequest{TransactionID: txID, Status: "success"})
	var derr *domain.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "transaction/no-settlement-rule", derr.Code)

	// Failing has no ledger effect and is allowed.
	_, err = NewSettlementService(store, nil, nil).UpdateTransactionStatus(ctx, UpdateStatusRequest{TransactionID: txID, Status: "failed"})
	require.NoError(t, err)
}
