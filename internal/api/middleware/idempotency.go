package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"

	"github.com/bitway/bitway-api/internal/api/problem"
	"github.com/bitway/bitway-api/internal/idempotency"
	"github.com/bitway/bitway-api/internal/observability"
	"go.uber.org/zap"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	ReplayHeader      = "X-Idempotent-Replay"

	// MaxBodyBytes caps JSON request bodies for both this middleware and the handlers.
	MaxBodyBytes = 8 << 20

	maxIdempotencyKeyLength = 128
)

// IdempotencyStore is the persistence the middleware needs; *idempotency.Store implements it.
type IdempotencyStore interface {
	Lookup(ctx context.Context, key, requestHash string) (*idempotency.Record, error)
	Reserve(ctx context.Context, req idempotency.Request) (bool, error)
	Finalize(ctx context.Context, req idempotency.Request, status int, body []byte, contentType string) (*idempotency.Record, error)
	Release(ctx context.Context, key string) error
	WaitForCompletion(ctx context.Context, key, requestHash string) (*idempotency.Record, error)
}

type idempotencyGuard struct {
	store  IdempotencyStore
	logger *zap.Logger
}

// IdempotencyMiddleware makes money-moving routes safe to retry. Keys are scoped to the
// authenticated caller. The first response is stored and replayed for retries with the same
// body; 5xx responses release the key so the client may try again.
func IdempotencyMiddleware(store IdempotencyStore, logger *zap.Logger) func(http.Handler) http.Handler {
	g := &idempotencyGuard{store: store, logger: logger}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !mutating(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			g.serve(w, r, next)
		})
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func (g *idempotencyGuard) serve(w http.ResponseWriter, r *http.Request, next http.Handler) {
	clientKey := r.Header.Get(IdempotencyHeader)
	switch {
	case clientKey == "":
		observability.IncrementIdempotencyEvent("missing_key")
		problem.Write(w, r, http.StatusBadRequest, "idempotency/missing-key", "Idempotency-Key header is required", nil)
		return
	case len(clientKey) > maxIdempotencyKeyLength:
		problem.Write(w, r, http.StatusBadRequest, "idempotency/invalid-key", "Idempotency-Key is too long", nil)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			problem.Write(w, r, http.StatusRequestEntityTooLarge, "request/too-large", "Request body is too large", nil)
			return
		}
		problem.Write(w, r, http.StatusBadRequest, "request/invalid-body", "Failed to read request body", nil)
		return
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	req := idempotency.Request{
		Key:    idempotency.ScopedKey(UserIDFromContext(r.Context()), clientKey),
		Hash:   hashRequest(r.Method, r.URL.Path, body),
		Method: r.Method,
		Path:   r.URL.Path,
	}

	rec, err := g.store.Lookup(r.Context(), req.Key, req.Hash)
	switch {
	case err == nil:
		observability.IncrementIdempotencyEvent("replay")
		replay(w, rec)
		return
	case errors.Is(err, idempotency.ErrHashMismatch):
		observability.IncrementIdempotencyEvent("hash_mismatch")
		problem.Write(w, r, http.StatusConflict, "idempotency/key-conflict", "Idempotency-Key was already used for a different request", nil)
		return
	case errors.Is(err, idempotency.ErrInProgress):
		g.awaitFirst(w, r, req, "replay_after_wait")
		return
	case !errors.Is(err, idempotency.ErrNotFound):
		observability.IncrementIdempotencyEvent("lookup_error")
		g.logger.Warn("idempotency lookup failed", zap.String("key", req.Key), zap.Error(err))
	}

	reserved, err := g.store.Reserve(r.Context(), req)
	if err != nil {
		observability.IncrementIdempotencyEvent("reserve_error")
		g.logger.Error("idempotency reserve failed", zap.String("key", req.Key), zap.Error(err))
		problem.Write(w, r, http.StatusServiceUnavailable, "idempotency/unavailable", "Please retry shortly", nil)
		return
	}
	if !reserved {
		g.awaitFirst(w, r, req, "replay_after_reserve")
		return
	}
	observability.IncrementIdempotencyEvent("reserved")

	capture := &captureWriter{ResponseWriter: w}
	next.ServeHTTP(capture, r)
	g.settle(r.Context(), req, capture)
}

// settle records the handler's response, or frees the key when the handler failed server-side.
func (g *idempotencyGuard) settle(ctx context.Context, req idempotency.Request, capture *captureWriter) {
	// Detach from the request so a client disconnect cannot strand the reservation.
	ctx = context.WithoutCancel(ctx)

	status := capture.statusCode()
	if status >= http.StatusInternalServerError {
		if err := g.store.Release(ctx, req.Key); err != nil {
			g.logger.Warn("idempotency release failed", zap.String("key", req.Key), zap.Error(err))
		}
		observability.IncrementIdempotencyEvent("released")
		return
	}

	contentType := capture.Header().Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	if _, err := g.store.Finalize(ctx, req, status, capture.body.Bytes(), contentType); err != nil {
		observability.IncrementIdempotencyEvent("finalize_error")
		g.logger.Warn("idempotency finalize failed", zap.String("key", req.Key), zap.Error(err))
		return
	}
	observability.IncrementIdempotencyEvent("finalized")
}

func (g *idempotencyGuard) awaitFirst(w http.ResponseWriter, r *http.Request, req idempotency.Request, event string) {
	rec, err := g.store.WaitForCompletion(r.Context(), req.Key, req.Hash)
	if err == nil {
		observability.IncrementIdempotencyEvent(event)
		replay(w, rec)
		return
	}
	if errors.Is(err, idempotency.ErrHashMismatch) {
		observability.IncrementIdempotencyEvent("hash_mismatch")
		problem.Write(w, r, http.StatusConflict, "idempotency/key-conflict", "Idempotency-Key was already used for a different request", nil)
		return
	}
	observability.IncrementIdempotencyEvent("in_progress_conflict")
	problem.Write(w, r, http.StatusConflict, "idempotency/in-progress", "A request with this Idempotency-Key is still processing", nil)
}

func hashRequest(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// captureWriter copies the response body while passing it through.
type captureWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (c *captureWriter) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *captureWriter) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}

func replay(w http.ResponseWriter, rec *idempotency.Record) {
	w.Header().Set("Content-Type", rec.ContentType)
	w.Header().Set(ReplayHeader, rec.ServedBy)
	w.WriteHeader(rec.Status)
	_, _ = w.Write(rec.Body)
}
