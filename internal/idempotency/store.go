// Package idempotency persists the first response to each mutating request so retries
// carrying the same Idempotency-Key replay it instead of moving money twice.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bitway/bitway-api/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	ErrNotFound     = errors.New("idempotency key not found")
	ErrHashMismatch = errors.New("idempotency key reused with a different request")
	ErrInProgress   = errors.New("idempotency key in progress")
)

const (
	cachePrefix = "bitway:idem:"

	// A reservation older than this belongs to a request that never finished (crash or
	// lost connection) and is dropped by Purge.
	defaultStaleAfter = 2 * time.Minute
	defaultMaxWait    = 5 * time.Second
	pollInterval      = 50 * time.Millisecond
)

// Served-by values reported in the X-Idempotent-Replay header.
const (
	ServedByCache    = "redis"
	ServedByDatabase = "postgres"
)

// Record is the stored outcome of one request.
type Record struct {
	Key         string
	RequestHash string
	Status      int
	Body        []byte
	ContentType string
	ServedBy    string
}

// Request identifies an in-flight mutating call.
type Request struct {
	Key    string
	Hash   string
	Method string
	Path   string
}

// Store keeps outcomes in Postgres, with Redis as an optional read-through cache.
type Store struct {
	db         *pgxpool.Pool
	cache      redis.Cmdable
	ttl        time.Duration
	staleAfter time.Duration
	maxWait    time.Duration
	now        func() time.Time
}

// NewStore builds a store. A nil client disables the Redis cache.
func NewStore(client *redis.Client, db *pgxpool.Pool, ttl time.Duration) *Store {
	s := &Store{
		db:         db,
		ttl:        ttl,
		staleAfter: defaultStaleAfter,
		maxWait:    defaultMaxWait,
		now:        time.Now,
	}
	if client != nil {
		s.cache = client
	}
	return s
}

// ScopedKey namespaces a client key by its owner so two users may pick the same key.
func ScopedKey(owner, key string) string {
	if owner == "" {
		owner = "anon"
	}
	return owner + ":" + key
}

// Lookup returns the finished record for key, ErrInProgress while the first request
// still runs, ErrHashMismatch when the key was used for a different request, or ErrNotFound.
func (s *Store) Lookup(ctx context.Context, key, requestHash string) (*Record, error) {
	if rec, ok := s.fromCache(ctx, key); ok {
		if rec.RequestHash != requestHash {
			return nil, ErrHashMismatch
		}
		return rec, nil
	}

	row, err := repository.New(s.db).GetIdempotencyKey(ctx, key)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("lookup idempotency key: %w", err)
	case row.RequestHash != requestHash:
		return nil, ErrHashMismatch
	case row.InProgress:
		return nil, ErrInProgress
	}
	rec := recordFromRow(row)
	s.toCache(ctx, rec)
	return &rec, nil
}

// Reserve claims req.Key. It reports false when another request already holds the key.
func (s *Store) Reserve(ctx context.Context, req Request) (bool, error) {
	_, err := repository.New(s.db).ReserveIdempotencyKey(ctx, repository.ReserveIdempotencyKeyParams{
		IdempotencyKey: req.Key,
		RequestHash:    req.Hash,
		Method:         req.Method,
		Path:           req.Path,
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, pgx.ErrNoRows):
		return false, nil
	default:
		return false, fmt.Errorf("reserve idempotency key: %w", err)
	}
}

// Finalize stores the response for a reserved request and makes it replayable.
func (s *Store) Finalize(ctx context.Context, req Request, status int, body []byte, contentType string) (*Record, error) {
	row, err := repository.New(s.db).FinalizeIdempotencyKey(ctx, repository.FinalizeIdempotencyKeyParams{
		ResponseStatus: int32(status),
		ResponseBody:   body,
		ContentType:    contentType,
		IdempotencyKey: req.Key,
		RequestHash:    req.Hash,
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finalize idempotency key: %w", err)
	}
	rec := recordFromRow(row)
	s.toCache(ctx, rec)
	return &rec, nil
}

// Release drops an unfinished reservation so the client can retry after a server error.
func (s *Store) Release(ctx context.Context, key string) error {
	if _, err := repository.New(s.db).ReleaseIdempotencyKey(ctx, key); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

// Purge deletes finished records older than the retention window and reservations
// abandoned for longer than the stale window. It returns the number of rows removed.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	q := repository.New(s.db)
	now := s.now()
	expired, err := q.DeleteIdempotencyKeysBefore(ctx, now.Add(-s.ttl))
	if err != nil {
		return 0, fmt.Errorf("purge idempotency keys: %w", err)
	}
	stale, err := q.DeleteStaleIdempotencyReservations(ctx, now.Add(-s.staleAfter))
	if err != nil {
		return expired, fmt.Errorf("purge stale idempotency reservations: %w", err)
	}
	return expired + stale, nil
}

// WaitForCompletion polls until the request holding key finishes, for at most the store's
// wait limit.
func (s *Store) WaitForCompletion(ctx context.Context, key, requestHash string) (*Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.maxWait)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		rec, err := s.Lookup(ctx, key, requestHash)
		if !errors.Is(err, ErrInProgress) {
			return rec, err
		}
		select {
		case <-ctx.Done():
			return nil, ErrInProgress
		case <-ticker.C:
		}
	}
}

func recordFromRow(row repository.IdempotencyKey) Record {
	return Record{
		Key:         row.IdempotencyKey,
		RequestHash: row.RequestHash,
		Status:      int(row.ResponseStatus),
		Body:        row.ResponseBody,
		ContentType: row.ContentType,
		ServedBy:    ServedByDatabase,
	}
}

type cachedRecord struct {
	Key         string `json:"key"`
	Hash        string `json:"hash"`
	Status      int    `json:"status"`
	Body        []byte `json:"body"`
	ContentType string `json:"content_type"`
}

func (s *Store) fromCache(ctx context.Context, key string) (*Record, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, cachePrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zap.L().Warn("idempotency cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var c cachedRecord
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, false
	}
	return &Record{
		Key:         c.Key,
		RequestHash: c.Hash,
		Status:      c.Status,
		Body:        c.Body,
		ContentType: c.ContentType,
		ServedBy:    ServedByCache,
	}, true
}

func (s *Store) toCache(ctx context.Context, rec Record) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(cachedRecord{
		Key:         rec.Key,
		Hash:        rec.RequestHash,
		Status:      rec.Status,
		Body:        rec.Body,
		ContentType: rec.ContentType,
	})
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cachePrefix+rec.Key, payload, s.ttl).Err(); err != nil {
		zap.L().Warn("idempotency cache write failed", zap.String("key", rec.Key), zap.Error(err))
	}
}
