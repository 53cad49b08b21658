package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitway/bitway-api/internal/repository"
)

func TestReconciliationRun(t *testing.T) {
	pool := setupTestDB(t)
	store := repository.NewStore(pool)
	ctx := context.Background()
	reconcileSvc := NewReconciliationService(store)

	userID := createCustomer(t, store, 1_000)
	_, err := NewLedgerService(store).Debit(ctx, userID, 400)
	require.NoError(t, err)

	report, err := reconcileSvc.Run(ctx)
	require.NoError(t, err)
	assert.True(t, report.Clean())

	// Append a row whose previous value does not continue the chain.
	active := activeBalance(t, store, userID)
	_, err = pool.Exec(ctx, `UPDATE balances SET status = FALSE WHERE id = $1`, active.ID)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO balances (id, user_id, seq, previous, book, current, status, kind) VALUES ($1, $2, $3, 1, 0, 600, TRUE, 'credit')`,
		repository.ToPgUUID(uuid.New()), repository.ToPgUUID(userID), active.Seq+1)
	require.NoError(t, err)

	report, err = reconcileSvc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.ChainBreaks)
	assert.Equal(t, 0, report.ActiveRowAnomalies)

	// A user with no active row is an anomaly.
	_, err = pool.Exec(ctx, `UPDATE balances SET status = FALSE WHERE user_id = $1`, repository.ToPgUUID(userID))
	require.NoError(t, err)
	report, err = reconcileSvc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.ActiveRowAnomalies)
}
