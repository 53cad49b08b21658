package idempotency

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/bitway/bitway-api/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopedKey(t *testing.T) {
	assert.Equal(t, "user-1:abc", ScopedKey("user-1", "abc"))
	assert.Equal(t, "anon:abc", ScopedKey("", "abc"))
	assert.NotEqual(t, ScopedKey("user-1", "abc"), ScopedKey("user-2", "abc"))
}

func TestStoreLifecycle(t *testing.T) {
	connString := os.Getenv("DATABASE_URL")
	if connString == "" {
		t.Skip("Skipping integration test: DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.Connect(ctx, connString)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, db.Migrate(ctx, pool))
	_, err = pool.Exec(ctx, `TRUNCATE TABLE idempotency_keys`)
	require.NoError(t, err)

	store := NewStore(nil, pool, time.Hour)
	key := ScopedKey("user-1", "k1")
	req := Request{Key: key, Hash: "hash", Method: "POST", Path: "/withdraw"}

	reserved, err := store.Reserve(ctx, req)
	require.NoError(t, err)
	assert.True(t, reserved)

	reserved, err = store.Reserve(ctx, req)
	require.NoError(t, err)
	assert.False(t, reserved)

	_, err = store.Lookup(ctx, key, "hash")
	assert.ErrorIs(t, err, ErrInProgress)

	rec, err := store.Finalize(ctx, req, 201, []byte(`{"status":true}`), "application/json")
	require.NoError(t, err)
	assert.Equal(t, 201, rec.Status)

	rec, err = store.Lookup(ctx, key, "hash")
	require.NoError(t, err)
	assert.Equal(t, ServedByDatabase, rec.ServedBy)

	_, err = store.Lookup(ctx, key, "other")
	assert.ErrorIs(t, err, ErrHashMismatch)

	store.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	deleted, err := store.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = store.Lookup(ctx, key, "hash")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorePurgesAbandonedReservations(t *testing.T) {
	connString := os.Getenv("DATABASE_URL")
	if connString == "" {
		t.Skip("Skipping integration test: DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.Connect(ctx, connString)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, db.Migrate(ctx, pool))
	_, err = pool.Exec(ctx, `TRUNCATE TABLE idempotency_keys`)
	require.NoError(t, err)

	store := NewStore(nil, pool, time.Hour)
	store.maxWait = 150 * time.Millisecond
	req := Request{Key: ScopedKey("user-9", "stuck"), Hash: "h", Method: "POST", Path: "/trade/bitcoin"}
	reserved, err := store.Reserve(ctx, req)
	require.NoError(t, err)
	require.True(t, reserved)

	_, err = store.WaitForCompletion(ctx, req.Key, req.Hash)
	assert.ErrorIs(t, err, ErrInProgress)

	// Within the retention window but past the stale window.
	store.now = func() time.Time { return time.Now().Add(10 * time.Minute) }
	deleted, err := store.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	reserved, err = store.Reserve(ctx, req)
	require.NoError(t, err)
	assert.True(t, reserved)
}
