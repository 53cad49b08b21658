package problem

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bitway/bitway-api/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestFromError_DomainKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.Validation("request/invalid-amount", "bad"), http.StatusBadRequest, "request/invalid-amount"},
		{domain.ErrInvalidCredentials, http.StatusUnauthorized, "auth/invalid-credentials"},
		{domain.ErrAccountBlocked, http.StatusForbidden, "auth/account-blocked"},
		{domain.ErrTransactionNotFound, http.StatusNotFound, "transaction/not-found"},
		{domain.ErrTransactionSettled, http.StatusConflict, "transaction/already-settled"},
		{fmt.Errorf("withdraw: %w", domain.ErrInsufficientFunds), http.StatusUnprocessableEntity, "wallet/insufficient-funds"},
		{domain.Upstream("upstream/paystack", "bank lookup failed", errors.New("timeout")), http.StatusBadGateway, "upstream/paystack"},
		{&pgconn.PgError{Code: "23505"}, http.StatusConflict, "db/unique-violation"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/balance", nil)
		rec.Header().Set("X-Trace-ID", "trace-1")

		FromError(rec, req, tc.err)

		assert.Equal(t, tc.status, rec.Code, tc.code)
		env := decode(t, rec)
		assert.Equal(t, StatusError, env.Status)
		assert.Equal(t, tc.code, env.Code)
		assert.Equal(t, "trace-1", env.RequestID)
	}
}

func TestFromError_HidesInternalCause(t *testing.T) {
	rec := httptest.NewRecorder()
	FromError(rec, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("password=hunter2"))
	assert.NotContains(t, rec.Body.String(), "hunter2")
}

func TestOK(t *testing.T) {
	rec := httptest.NewRecorder()
	OK(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusCreated, "created", map[string]string{"id": "1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	env := decode(t, rec)
	assert.Equal(t, StatusSuccess, env.Status)
	assert.Equal(t, "created", env.Message)
	assert.Empty(t, env.Code)
}
