package repository

import (
	"context"
	"os"
	"testing"

	"github.com/bitway/bitway-api/internal/db"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	_ = godotenv.Load("../../.env")
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(0, 0)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultPerPage, p.PerPage)
	assert.Equal(t, int32(0), p.Offset())

	p = NewPagination(3, 500)
	assert.Equal(t, MaxPerPage, p.PerPage)
	assert.Equal(t, int32(200), p.Offset())
	assert.Equal(t, int32(100), p.Limit())
}

func TestSearchPattern(t *testing.T) {
	assert.Equal(t, "", SearchPattern("   "))
	assert.Equal(t, "%ada%", SearchPattern(" ada "))
	assert.Equal(t, `%50\%\_off%`, SearchPattern("50%_off"))
}

func TestActiveBalanceIndex(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("Skipping integration test: DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, os.Getenv("DATABASE_URL"))
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, db.Migrate(ctx, pool))

	store := NewStore(pool)
	q := store.Queries()

	userID := uuid.New()
	suffix := userID.String()[:8]
	_, err = q.CreateUser(ctx, CreateUserParams{
		ID:           ToPgUUID(userID),
		Firstname:    "Repo",
		Lastname:     "Test",
		Email:        "repo_" + suffix + "@example.com",
		Phone:        "+234" + suffix,
		PasswordHash: "x",
		Role:         "customer",
	})
	require.NoError(t, err)

	opening, err := q.InsertBalance(ctx, InsertBalanceParams{
		ID:     ToPgUUID(uuid.New()),
		UserID: ToPgUUID(userID),
		Seq:    0,
		Kind:   "opening",
	})
	require.NoError(t, err)
	assert.True(t, opening.Status)

	// A second active row for the same user must be rejected.
	_, err = q.InsertBalance(ctx, InsertBalanceParams{
		ID:      ToPgUUID(uuid.New()),
		UserID:  ToPgUUID(userID),
		Seq:     1,
		Current: 100,
		Kind:    "credit",
	})
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err, "balances_one_active_idx"))

	err = store.RunInTx(ctx, func(qtx *Queries) error {
		require.NoError(t, qtx.LockUser(ctx, ToPgUUID(userID)))
		rows, err := qtx.DeactivateBalance(ctx, opening.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, int64(1), rows)
		_, err = qtx.InsertBalance(ctx, InsertBalanceParams{
			ID:       ToPgUUID(uuid.New()),
			UserID:   ToPgUUID(userID),
			Seq:      1,
			Previous: 0,
			Current:  100,
			Kind:     "credit",
		})
		return err
	})
	require.NoError(t, err)

	active, err := q.GetActiveBalance(ctx, ToPgUUID(userID))
	require.NoError(t, err)
	assert.Equal(t, int64(100), active.Current)
	assert.Equal(t, int64(1), active.Seq)

	count, err := q.CountActiveBalances(ctx, ToPgUUID(userID))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
