package service

import (
	"strings"

	"github.com/bitway/bitway-api/internal/domain"
)

// A transaction starts pending and is settled exactly once, to success or failed.

func normalizeState(state string) string {
	return strings.ToLower(strings.TrimSpace(state))
}

func isTerminal(state string) bool {
	switch normalizeState(state) {
	case domain.TxStatusSuccess, domain.TxStatusFailed:
		return true
	}
	return false
}

// validTargetState reports whether an admin may request state when settling.
func validTargetState(state string) bool {
	return isTerminal(state)
}

func canTransition(current, next string) bool {
	return normalizeState(current) == domain.TxStatusPending && validTargetState(next)
}
