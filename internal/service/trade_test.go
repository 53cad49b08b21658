package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitway/bitway-api/internal/domain"
	"github.com/bitway/bitway-api/internal/repository"
)

func TestSubmitTradePricesFromServiceRate(t *testing.T) {
	pool := setupTestDB(t)
	store := repository.NewStore(pool)
	notifier := &recordingNotifier{}
	trades := NewTradeService(store, nil, notifier, "+2348000000000")
	ctx := context.Background()

	userID := createCustomer(t, store, 0)
	txn, err := trades.SubmitTrade(ctx, TradeRequest{
		UserID:    userID,
		ServiceID: sellBitcoinServiceID,
		Asset:     "Bitcoin",
		USD:       decimal.RequireFromString("12.345"),
	})
	require.NoError(t, err)

	// floor(12.345 * 1500.00) = 18517.50
	assert.Equal(t, domain.Amount(1_851_750), txn.Amount)
	assert.Equal(t, domain.TxTypeCredit, txn.Type)
	assert.Equal(t, domain.TxStatusPending, txn.Status)
	assert.Equal(t, "$12.345 bitcoin sold at 1500.00/$", txn.Narration)
	assert.Len(t, notifier.Messages(), 1)
	assert.Equal(t, int64(0), activeBalance(t, store, userID).Current)
}

func TestSubmitTradeChecks(t *testing.T) {
	pool := setupTestDB(t)
	store := repository.NewStore(pool)
	uploader := &staticUploader{url: "https://cdn.example/trades/proof.png"}
	trades := NewTradeService(store, uploader, nil, "")
	ctx := context.Background()
	userID := createCustomer(t, store, 0)

	_, err := trades.SubmitTrade(ctx, TradeRequest{UserID: userID, ServiceID: sellBitcoinServiceID, Asset: domain.AssetUSDT, USD: decimal.NewFromInt(5), Image: "data:image/png;base64,AA"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = trades.SubmitTrade(ctx, TradeRequest{UserID: userID, ServiceID: sellUSDTServiceID, Asset: domain.AssetUSDT, USD: decimal.NewFromInt(5)})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = trades.SubmitTrade(ctx, TradeRequest{UserID: userID, ServiceID: sellUSDTServiceID, Asset: domain.AssetUSDT, USD: decimal.NewFromInt(-1), Image: "x"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	txn, err := trades.SubmitTrade(ctx, TradeRequest{UserID: userID, ServiceID: sellUSDTServiceID, Asset: domain.AssetUSDT, USD: decimal.NewFromInt(5), Image: "data:image/png;base64,AA", RequestKey: "trade-1"})
	require.NoError(t, err)
	assert.Equal(t, uploader.url, txn.ImageURL)

	again, err := trades.SubmitTrade(ctx, TradeRequest{UserID: userID, ServiceID: sellUSDTServiceID, Asset: domain.AssetUSDT, USD: decimal.NewFromInt(5), Image: "data:image/png;base64,AA", RequestKey: "trade-1"})
	require.NoError(t, err)
	assert.Equal(t, txn.ID, again.ID)
	assert.Equal(t, 1, uploader.calls)
}

func TestQuoteTradeRejectsOverflow(t *testing.T) {
	pool := setupTestDB(t)
	quotes := NewQuoteService(repository.NewStore(pool))

	_, err := quotes.QuoteTrade(context.Background(), sellBitcoinServiceID, decimal.RequireFromString("1e15"))
	require.ErrorIs(t, err, domain.ErrValidation)
	derr, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "request/invalid-amount", derr.Code)
}
