package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bitway/bitway-api/internal/api/middleware"
	"github.com/bitway/bitway-api/internal/api/problem"
	"github.com/bitway/bitway-api/internal/domain"
	"github.com/bitway/bitway-api/internal/models"
	"github.com/bitway/bitway-api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type withdrawerMock struct{ mock.Mock }

func (m *withdrawerMock) RequestWithdrawal(ctx context.Context, req service.WithdrawalRequest) (*models.Transaction, error) {
	args := m.Called(ctx, req)
	txn, _ := args.Get(0).(*models.Transaction)
	return txn, args.Error(1)
}

type traderMock struct{ mock.Mock }

func (m *traderMock) SubmitTrade(ctx context.Context, req service.TradeRequest) (*models.Transaction, error) {
	args := m.Called(ctx, req)
	txn, _ := args.Get(0).(*models.Transaction)
	return txn, args.Error(1)
}

func (m *traderMock) Quote(ctx context.Context, serviceID uuid.UUID, usd decimal.Decimal) (*service.Quote, error) {
	args := m.Called(ctx, serviceID, usd)
	q, _ := args.Get(0).(*service.Quote)
	return q, args.Error(1)
}

type settlerMock struct{ mock.Mock }

func (m *settlerMock) UpdateTransactionStatus(ctx context.Context, req service.UpdateStatusRequest) (*service.SettlementResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*service.SettlementResult)
	return res, args.Error(1)
}

type authServiceMock struct{ mock.Mock }

func (m *authServiceMock) Register(ctx context.Context, req service.RegisterRequest) (*service.AuthResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*service.AuthResult)
	return res, args.Error(1)
}

func (m *authServiceMock) Login(ctx context.Context, username, password, role string) (*service.AuthResult, error) {
	args := m.Called(ctx, username, password, role)
	res, _ := args.Get(0).(*service.AuthResult)
	return res, args.Error(1)
}

func (m *authServiceMock) VerifyEmail(ctx context.Context, token string) (*models.User, error) {
	args := m.Called(ctx, token)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *authServiceMock) ResendVerification(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *authServiceMock) RecoverAccount(ctx context.Context, email, ipAddress, userAgent string) error {
	return m.Called(ctx, email, ipAddress, userAgent).Error(0)
}

func (m *authServiceMock) ResetPassword(ctx context.Context, token, newPassword, retype string) error {
	return m.Called(ctx, token, newPassword, retype).Error(0)
}

func authed(req *http.Request, role string) (*http.Request, uuid.UUID) {
	id := uuid.New()
	ctx := middleware.WithPrincipal(req.Context(), middleware.Principal{
		UserID: id,
		Role:   role,
		User:   &models.User{ID: id, Role: role},
	})
	return req.WithContext(ctx), id
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) problem.Envelope {
	t.Helper()
	var env problem.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestWithdraw(t *testing.T) {
	serviceID := uuid.New()
	accountID := uuid.New()

	t.Run("created", func(t *testing.T) {
		withdrawals := &withdrawerMock{}
		h := NewWalletHandler(nil, withdrawals)
		req, userID := authed(jsonRequest(t, http.MethodPost, "/withdraw", map[string]string{
			"service":     serviceID.String(),
			"amount":      "2500.50",
			"bankAccount": accountID.String(),
			"pin":         "1234",
		}), domain.RoleCustomer)
		req.Header.Set(middleware.IdempotencyHeader, "wd-1")

		withdrawals.On("RequestWithdrawal", mock.Anything, service.WithdrawalRequest{
			UserID:        userID,
			ServiceID:     serviceID,
			BankAccountID: accountID,
			Amount:        250050,
			PIN:           "1234",
			RequestKey:    "wd-1",
		}).Return(&models.Transaction{ID: uuid.New(), Status: domain.TxStatusPending, Amount: 250050}, nil)

		rec := httptest.NewRecorder()
		h.Withdraw(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		env := decodeEnvelope(t, rec)
		assert.Equal(t, problem.StatusSuccess, env.Status)
		data := env.Data.(map[string]any)
		assert.Equal(t, "2500.50", data["amount"])
		withdrawals.AssertExpectations(t)
	})

	t.Run("insufficient funds", func(t *testing.T) {
		withdrawals := &withdrawerMock{}
		withdrawals.On("RequestWithdrawal", mock.Anything, mock.Anything).Return(nil, domain.ErrInsufficientFunds)
		req, _ := authed(jsonRequest(t, http.MethodPost, "/withdraw", map[string]string{
			"service": serviceID.String(), "amount": "10", "bankAccount": accountID.String(), "pin": "1234",
		}), domain.RoleCustomer)

		rec := httptest.NewRecorder()
		NewWalletHandler(nil, withdrawals).Withdraw(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "wallet/insufficient-funds", decodeEnvelope(t, rec).Code)
	})

	t.Run("invalid service id", func(t *testing.T) {
		withdrawals := &withdrawerMock{}
		req, _ := authed(jsonRequest(t, http.MethodPost, "/withdraw", map[string]string{
			"service": "not-a-uuid", "amount": "10", "bankAccount": accountID.String(),
		}), domain.RoleCustomer)

		rec := httptest.NewRecorder()
		NewWalletHandler(nil, withdrawals).Withdraw(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		withdrawals.AssertNotCalled(t, "RequestWithdrawal", mock.Anything, mock.Anything)
	})

	t.Run("bad amount", func(t *testing.T) {
		req, _ := authed(jsonRequest(t, http.MethodPost, "/withdraw", map[string]string{
			"service": serviceID.String(), "amount": "ten", "bankAccount": accountID.String(),
		}), domain.RoleCustomer)
		rec := httptest.NewRecorder()
		NewWalletHandler(nil, &withdrawerMock{}).Withdraw(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "request/invalid-body", decodeEnvelope(t, rec).Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewWalletHandler(nil, &withdrawerMock{}).Withdraw(rec, jsonRequest(t, http.MethodPost, "/withdraw", map[string]string{}))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestTradeHandler(t *testing.T) {
	serviceID := uuid.New()

	t.Run("usdt forwards image and asset", func(t *testing.T) {
		trades := &traderMock{}
		req, userID := authed(jsonRequest(t, http.MethodPost, "/trade/usdt", map[string]any{
			"service":  serviceID.String(),
			"amount":   "25.5",
			"imageUrl": "data:image/png;base64,AA",
		}), domain.RoleCustomer)
		req.Header.Set(middleware.IdempotencyHeader, "trade-7")

		trades.On("SubmitTrade", mock.Anything, mock.MatchedBy(func(tr service.TradeRequest) bool {
			return tr.UserID == userID &&
				tr.ServiceID == serviceID &&
				tr.Asset == domain.AssetUSDT &&
				tr.USD.Equal(decimal.RequireFromString("25.5")) &&
				tr.Image == "data:image/png;base64,AA" &&
				tr.RequestKey == "trade-7"
		})).Return(&models.Transaction{ID: uuid.New()}, nil)

		rec := httptest.NewRecorder()
		NewTradeHandler(trades).SellUSDT(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		trades.AssertExpectations(t)
	})

	t.Run("quote", func(t *testing.T) {
		trades := &traderMock{}
		trades.On("Quote", mock.Anything, serviceID, mock.AnythingOfType("decimal.Decimal")).
			Return(&service.Quote{ServiceID: serviceID, Asset: domain.AssetBitcoin, Rate: 150000, Receive: 1500000}, nil)

		req := httptest.NewRequest(http.MethodGet, "/trade/quote?service="+serviceID.String()+"&amount=10", nil)
		rec := httptest.NewRecorder()
		NewTradeHandler(trades).Quote(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		data := decodeEnvelope(t, rec).Data.(map[string]any)
		assert.Equal(t, "15000.00", data["amount_to_receive"])
	})

	t.Run("quote rejects bad amount", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/trade/quote?service="+serviceID.String()+"&amount=abc", nil)
		rec := httptest.NewRecorder()
		NewTradeHandler(&traderMock{}).Quote(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAdminSettle(t *testing.T) {
	txID := uuid.New()
	ownerID := uuid.New()

	t.Run("withdrawal route restricts kind", func(t *testing.T) {
		settler := &settlerMock{}
		req, adminID := authed(jsonRequest(t, http.MethodPut, "/admin/withdrawals/update", map[string]any{
			"id":     txID.String(),
			"userId": ownerID.String(),
			"status": "failed",
		}), domain.RoleAdmin)

		settler.On("UpdateTransactionStatus", mock.Anything, mock.MatchedBy(func(r service.UpdateStatusRequest) bool {
			return r.TransactionID == txID &&
				r.UserID != nil && *r.UserID == ownerID &&
				r.ActorID != nil && *r.ActorID == adminID &&
				r.RequireKind == domain.ServiceKindWithdrawal &&
				r.Amount == nil
		})).Return(&service.SettlementResult{Transaction: &models.Transaction{ID: txID, Status: domain.TxStatusFailed}}, nil)

		rec := httptest.NewRecorder()
		NewAdminHandler(nil, settler).UpdateWithdrawal(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		settler.AssertExpectations(t)
	})

	t.Run("amount and service pass through", func(t *testing.T) {
		settler := &settlerMock{}
		req, _ := authed(jsonRequest(t, http.MethodPost, "/admin/transactions/status/update", map[string]any{
			"id":      txID.String(),
			"status":  "success",
			"amount":  "14000",
			"service": "Sell Bitcoin",
		}), domain.RoleAdmin)

		settler.On("UpdateTransactionStatus", mock.Anything, mock.MatchedBy(func(r service.UpdateStatusRequest) bool {
			return r.Amount != nil && *r.Amount == 1400000 && r.ServiceName == "Sell Bitcoin" && r.RequireKind == "" && r.UserID == nil
		})).Return(nil, domain.ErrTransactionSettled)

		rec := httptest.NewRecorder()
		NewAdminHandler(nil, settler).UpdateTransactionStatus(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "transaction/already-settled", decodeEnvelope(t, rec).Code)
	})
}

func TestAuthHandler(t *testing.T) {
	t.Run("admin login uses admin role", func(t *testing.T) {
		users := &authServiceMock{}
		users.On("Login", mock.Anything, "ops@bitway.ng", "secret-pass", domain.RoleAdmin).
			Return(nil, domain.ErrInvalidCredentials)

		rec := httptest.NewRecorder()
		NewAuthHandler(users).AdminLogin(rec, jsonRequest(t, http.MethodPost, "/admin/login", map[string]string{
			"username": "ops@bitway.ng",
			"password": "secret-pass",
		}))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		users.AssertExpectations(t)
	})

	t.Run("recover passes client metadata", func(t *testing.T) {
		users := &authServiceMock{}
		users.On("RecoverAccount", mock.Anything, "a@b.co", "203.0.113.9", "bitway-test").Return(nil)

		req := jsonRequest(t, http.MethodPost, "/account/recover", map[string]string{"email": "a@b.co"})
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		req.Header.Set("User-Agent", "bitway-test")
		rec := httptest.NewRecorder()
		NewAuthHandler(users).RecoverAccount(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		users.AssertExpectations(t)
	})

	t.Run("empty body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/register", http.NoBody)
		rec := httptest.NewRecorder()
		NewAuthHandler(&authServiceMock{}).Register(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestPathUUID(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/bank/accounts/{id}", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := pathUUID(w, r, "id"); ok {
			w.WriteHeader(http.StatusNoContent)
		}
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bank/accounts/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bank/accounts/42", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "request/invalid-id", decodeEnvelope(t, rec).Code)
}

func TestPagination(t *testing.T) {
	page, perPage := pagination(httptest.NewRequest(http.MethodGet, "/transactions?page=3&perPage=25", nil))
	assert.Equal(t, 3, page)
	assert.Equal(t, 25, perPage)

	page, perPage = pagination(httptest.NewRequest(http.MethodGet, "/transactions?per_page=5", nil))
	assert.Equal(t, 0, page)
	assert.Equal(t, 5, perPage)
}

func TestHealthHandler(t *testing.T) {
	healthy := PingFunc(func(context.Context) error { return nil })
	h := NewHealthHandler(healthy, nil)

	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"postgres":"ok"`)

	down := NewHealthHandler(PingFunc(func(context.Context) error { return errors.New("refused") }), nil)
	rec = httptest.NewRecorder()
	down.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "health/not-ready", env.Code)

	rec = httptest.NewRecorder()
	down.Live(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
