package service

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/bitway/bitway-api/internal/auth"
	"github.com/bitway/bitway-api/internal/db"
	"github.com/bitway/bitway-api/internal/domain"
	"github.com/bitway/bitway-api/internal/events"
	"github.com/bitway/bitway-api/internal/notify"
	"github.com/bitway/bitway-api/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

var (
	sellBitcoinServiceID = uuid.MustParse("6b0f1c52-8f3e-4c0a-9f4e-0a1d2b3c4d01")
	sellUSDTServiceID    = uuid.MustParse("6b0f1c52-8f3e-4c0a-9f4e-0a1d2b3c4d02")
	withdrawalServiceID  = uuid.MustParse("6b0f1c52-8f3e-4c0a-9f4e-0a1d2b3c4d03")
)

const testPIN = "1234"

// setupTestDB connects to the local Postgres instance, migrates it and clears user data.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	connString := os.Getenv("DATABASE_URL")
	if connString == "" {
		t.Skip("Skipping integration test: DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.Connect(ctx, connString)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx, pool))

	_, err = pool.Exec(ctx, `TRUNCATE TABLE audit_log, password_resets, idempotency_keys, balances, transactions, bank_accounts, users CASCADE`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `DELETE FROM services WHERE id NOT IN ($1, $2, $3)`,
		repository.ToPgUUID(sellBitcoinServiceID), repository.ToPgUUID(sellUSDTServiceID), repository.ToPgUUID(withdrawalServiceID))
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `UPDATE services SET status = TRUE, deleted_at = NULL, rate_kobo = 150000`)
	require.NoError(t, err)

	t.Cleanup(pool.Close)
	return pool
}

// createCustomer inserts a customer with a PIN and an opening balance of opening kobo.
func createCustomer(t *testing.T, store *repository.Store, opening domain.Amount) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	q := store.Queries()

	userID := uuid.New()
	suffix := userID.String()[:8]
	_, err := q.CreateUser(ctx, repository.CreateUserParams{
		ID:           repository.ToPgUUID(userID),
		Firstname:    "Test",
		Lastname:     "Customer",
		Email:        "customer_" + suffix + "@example.com",
		Phone:        "+23480" + suffix,
		PasswordHash: "unused",
		Role:         domain.RoleCustomer,
	})
	require.NoError(t, err)

	_, err = q.InsertBalance(ctx, repository.InsertBalanceParams{
		ID:     repository.ToPgUUID(uuid.New()),
		UserID: repository.ToPgUUID(userID),
		Seq:    0,
		Kind:   domain.BalanceOpening,
	})
	require.NoError(t, err)

	pinHash, err := auth.HashSecret(testPIN)
	require.NoError(t, err)
	_, err = q.UpdateUserPIN(ctx, repository.ToPgUUID(userID), pinHash)
	require.NoError(t, err)

	if opening > 0 {
		_, err = NewLedgerService(store).Credit(ctx, userID, opening)
		require.NoError(t, err)
	}
	return userID
}

func createBankAccount(t *testing.T, store *repository.Store, userID uuid.UUID) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := store.Queries().CreateBankAccount(context.Background(), repository.CreateBankAccountParams{
		ID:            repository.ToPgUUID(id),
		UserID:        repository.ToPgUUID(userID),
		BankName:      "Access Bank",
		BankCode:      "044",
		AccountNumber: "0" + id.String()[:8] + "1",
		AccountName:   "TEST CUSTOMER",
	})
	require.NoError(t, err)
	return id
}

func activeBalance(t *testing.T, store *repository.Store, userID uuid.UUID) repository.Balance {
	t.Helper()
	row, err := store.Queries().GetActiveBalance(context.Background(), repository.ToPgUUID(userID))
	require.NoError(t, err)
	return row
}

func countTransactions(t *testing.T, pool *pgxpool.Pool, userID uuid.UUID) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(context.Background(), `SELECT COUNT(*) FROM transactions WHERE user_id = $1`, repository.ToPgUUID(userID)).Scan(&n))
	return n
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (n *recordingNotifier) Publish(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return nil
}

func (n *recordingNotifier) Messages() []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Message(nil), n.messages...)
}

type recordingAlerts struct {
	mu        sync.Mutex
	threshold domain.Amount
	alerts    []events.LargeSettlementAlert
}

func (a *recordingAlerts) PublishSettlement(_ context.Context, alert events.LargeSettlementAlert) (bool, error) {
	if alert.Amount < a.threshold {
		return false, nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, alert)
	return true, nil
}

func (a *recordingAlerts) Alerts() []events.LargeSettlementAlert {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]events.LargeSettlementAlert(nil), a.alerts...)
}

type staticUploader struct {
	url   string
	calls int
}

func (u *staticUploader) Upload(_ context.Context, _, _ string) (string, error) {
	u.calls++
	return u.url, nil
}
