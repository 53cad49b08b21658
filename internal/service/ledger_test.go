package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitway/bitway-api/internal/domain"
	"github.com/bitway/bitway-api/internal/repository"
)

func TestLedgerCreditThenDebit(t *testing.T) {
	pool := setupTestDB(t)
	store := repository.NewStore(pool)
	ledger := NewLedgerService(store)
	ctx := context.Background()

	userID := createCustomer(t, store, 0)

	b, err := ledger.Credit(ctx, userID, 100)
	require.NoError(t, err)
	assert.Equal(t, domain.Amount(100), b.Current)
	assert.Equal(t, int64(1), b.Seq)

	b, err = ledger.Debit(ctx, userID, 40)
	require.NoError(t, err)
	assert.Equal(t, domain.Amount(60), b.Current)
	assert.Equal(t, domain.Amount(100), b.Previous)

	history, err := ledger.History(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.True(t, history[0].Active)
	assert.False(t, history[1].Active)
	assert.False(t, history[2].Active)
	assert.Equal(t, domain.BalanceOpening, history[2].Kind)
}

func TestLedgerDebitExceedingBalanceLeavesRowUnchanged(t *testing.T) {
	pool := setupTestDB(t)
	store := repository.NewStore(pool)
	ledger := NewLedgerService(store)
	ctx := context.Background()

	userID := createCustomer(t, store, 50)
	before := activeBalance(t, store, userID)

	_, err := ledger.Debit(ctx, userID, 51)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	after := activeBalance(t, store, userID)
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, int64(50), after.Current)
}

func TestLedgerRejectsNonPositiveAmount(t *testing.T) {
	pool := setupTestDB(t)
	store := repository.NewStore(pool)
	userID := createCustomer(t, store, 0)

	_, err := NewLedgerService(store).Credit(context.Background(), userID, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestLedgerUnknownUser(t *testing.T) {
	pool := setupTestDB(t)
	store := repository.NewStore(pool)

	_, err := NewLedgerService(store).Credit(context.Background(), uuid.New(), 10)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestLedgerConcurrentCreditAndDebit(t *testing.T) {
	pool := setupTestDB(t)
	store := repository.NewStore(pool)
	ledger := NewLedgerService(store)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		userID := createCustomer(t, store, 100)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, errs[0] = ledger.Credit(ctx, userID, 50)
		}()
		go func() {
			defer wg.Done()
			_, errs[1] = ledger.Debit(ctx, userID, 30)
		}()
		wg.Wait()

		require.NoError(t, errs[0])
		require.NoError(t, errs[1])

		final := activeBalance(t, store, userID)
		assert.Equal(t, int64(120), final.Current)
		assert.Equal(t, int64(3), final.Seq)

		active, err := store.Queries().CountActiveBalances(ctx, repository.ToPgUUID(userID))
		require.NoError(t, err)
		assert.Equal(t, int64(1), active)
	}
}
