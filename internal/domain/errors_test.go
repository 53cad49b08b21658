package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsByCodeAndKind(t *testing.T) {
	wrapped := fmt.Errorf("withdraw: %w", ErrInsufficientFunds)

	assert.True(t, errors.Is(wrapped, ErrInsufficientFunds))
	assert.False(t, errors.Is(wrapped, ErrTransactionSettled))
	assert.Equal(t, KindInsufficientFunds, KindOf(wrapped))

	settled := ErrTransactionSettled.WithMessage("transaction %s is %s", "abc", TxStatusSuccess)
	assert.True(t, errors.Is(settled, ErrTransactionSettled))
	assert.True(t, errors.Is(settled, ErrConflict))
	assert.False(t, errors.Is(settled, ErrNotFound))
	assert.Equal(t, "transaction abc is success", settled.Error())
}

func TestError_WithCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Upstream("upstream/sms", "sms gateway unavailable", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "sms gateway unavailable: connection reset", err.Error())
	assert.Equal(t, KindUpstream, KindOf(err))
}

func TestKindOf_Untyped(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))

	_, ok := AsError(errors.New("boom"))
	assert.False(t, ok)
}
