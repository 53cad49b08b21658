package domain

import (
	"errors"
	"fmt"
)

// Kind groups errors by how callers should react to them.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindUpstream          Kind = "upstream"
	KindInternal          Kind = "internal"
)

// Error is the typed failure returned across service boundaries.
// Code is a stable machine-readable slug such as "wallet/insufficient-funds".
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Code when the target carries one, otherwise on Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code != "" {
		return t.Code == e.Code
	}
	return t.Kind == e.Kind
}

// WithCause returns a copy of e wrapping err.
func (e *Error) WithCause(err error) *Error {
	c := *e
	c.Err = err
	return &c
}

// WithMessage returns a copy of e with a more specific message.
func (e *Error) WithMessage(format string, args ...any) *Error {
	c := *e
	c.Message = fmt.Sprintf(format, args...)
	return &c
}

// Kind sentinels for errors.Is checks.
var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrForbidden    = &Error{Kind: KindForbidden}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrUpstream     = &Error{Kind: KindUpstream}
)

var (
	ErrInsufficientFunds   = &Error{Kind: KindInsufficientFunds, Code: "wallet/insufficient-funds", Message: "insufficient funds"}
	ErrBalanceNotFound     = &Error{Kind: KindNotFound, Code: "wallet/not-found", Message: "wallet not found"}
	ErrConcurrentUpdate    = &Error{Kind: KindConflict, Code: "ledger/concurrent-update", Message: "balance changed concurrently, retry the request"}
	ErrTransactionNotFound = &Error{Kind: KindNotFound, Code: "transaction/not-found", Message: "transaction not found"}
	ErrTransactionSettled  = &Error{Kind: KindConflict, Code: "transaction/already-settled", Message: "transaction has already been settled"}
	ErrUserNotFound        = &Error{Kind: KindNotFound, Code: "user/not-found", Message: "user not found"}
	ErrServiceNotFound     = &Error{Kind: KindNotFound, Code: "service/not-found", Message: "service not found"}
	ErrBankAccountNotFound = &Error{Kind: KindNotFound, Code: "bank-account/not-found", Message: "bank account not found"}
	ErrInvalidCredentials  = &Error{Kind: KindUnauthorized, Code: "auth/invalid-credentials", Message: "invalid username or password"}
	ErrInvalidPIN          = &Error{Kind: KindUnauthorized, Code: "auth/invalid-pin", Message: "incorrect transaction pin"}
	ErrInvalidToken        = &Error{Kind: KindUnauthorized, Code: "auth/invalid-token", Message: "invalid or expired token"}
	ErrAccountBlocked      = &Error{Kind: KindForbidden, Code: "auth/account-blocked", Message: "account has been blocked"}
)

// Validation builds a 400-class error.
func Validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

// NotFound builds a 404-class error.
func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

// Conflict builds a 409-class error.
func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

// Upstream wraps a third-party failure.
func Upstream(code, message string, err error) *Error {
	return &Error{Kind: KindUpstream, Code: code, Message: message, Err: err}
}

// KindOf reports the Kind of err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// AsError extracts the typed error from err's chain.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
