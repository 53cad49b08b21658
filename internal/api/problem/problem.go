package problem

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bitway/bitway-api/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

const contentType = "application/json"

const (
	StatusSuccess = "Success"
	StatusError   = "Error"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	Code      string `json:"code,omitempty"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// OK writes a success envelope.
func OK(w http.ResponseWriter, r *http.Request, status int, message string, data any) {
	write(w, status, Envelope{
		Status:    StatusSuccess,
		Message:   message,
		Data:      data,
		RequestID: requestID(w, r),
	})
}

// Write sends an error envelope with an explicit status and code.
func Write(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	if message == "" {
		message = http.StatusText(status)
	}
	write(w, status, Envelope{
		Status:    StatusError,
		Message:   message,
		Code:      code,
		Details:   details,
		RequestID: requestID(w, r),
	})
}

// FromError maps err onto the error envelope. Untyped errors are logged and answered with 500.
func FromError(w http.ResponseWriter, r *http.Request, err error) {
	if de, ok := domain.AsError(err); ok {
		status := StatusFor(de.Kind)
		if status >= http.StatusInternalServerError {
			zap.L().Error("request failed",
				zap.Error(err),
				zap.String("code", de.Code),
				zap.String("path", pathOf(r)),
				zap.String("request_id", requestID(w, r)),
			)
		}
		Write(w, r, status, de.Code, de.Message, nil)
		return
	}
	if status, code, message, ok := mapDBError(err); ok {
		Write(w, r, status, code, message, nil)
		return
	}
	zap.L().Error("unhandled request error",
		zap.Error(err),
		zap.String("path", pathOf(r)),
		zap.String("request_id", requestID(w, r)),
	)
	Write(w, r, http.StatusInternalServerError, "internal", "something went wrong, please try again", nil)
}

// StatusFor returns the HTTP status for an error kind.
func StatusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindInsufficientFunds:
		return http.StatusUnprocessableEntity
	case domain.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func mapDBError(err error) (status int, code, message string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return 0, "", "", false
	}

	switch pgErr.Code {
	case "23505": // unique_violation
		return http.StatusConflict, "db/unique-violation", "resource already exists", true
	case "23503": // foreign_key_violation
		return http.StatusBadRequest, "db/foreign-key-violation", "invalid reference", true
	case "23514": // check_violation
		return http.StatusBadRequest, "db/check-violation", "request violates data constraints", true
	case "23502": // not_null_violation
		return http.StatusBadRequest, "db/not-null-violation", "missing required field", true
	case "40001", "40P01":
		return http.StatusConflict, "ledger/concurrent-update", "request conflicted with a concurrent update, retry", true
	default:
		return 0, "", "", false
	}
}

func write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func requestID(w http.ResponseWriter, r *http.Request) string {
	if id := w.Header().Get("X-Trace-ID"); id != "" {
		return id
	}
	if r != nil {
		return r.Header.Get("X-Trace-ID")
	}
	return ""
}

func pathOf(r *http.Request) string {
	if r == nil {
		return ""
	}
	return r.URL.Path
}
