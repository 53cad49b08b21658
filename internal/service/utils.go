package service

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bitway/bitway-api/internal/domain"
	"github.com/bitway/bitway-api/internal/repository"
)

func requireExactlyOne(rows int64, operation string) error {
	if rows != 1 {
		return fmt.Errorf("%s affected %d rows", operation, rows)
	}
	return nil
}

// mapTxError turns exhausted transaction retries into a client-retryable conflict.
func mapTxError(err error) error {
	if errors.Is(err, repository.ErrTxRetriesExhausted) {
		return domain.ErrConcurrentUpdate.WithCause(err)
	}
	return err
}

// newReference builds a human-readable transaction reference such as WDR-20240101-9F2C4A1B.
func newReference(prefix string, now time.Time) string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("read random bytes: %v", err))
	}
	return fmt.Sprintf("%s-%s-%s", prefix, now.UTC().Format("20060102"), strings.ToUpper(hex.EncodeToString(buf)))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	var b strings.Builder
	for i, r := range phone {
		if r >= '0' && r <= '9' || (r == '+' && i == 0) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// normalizeLogin canonicalises a login name the same way registration stores it.
func normalizeLogin(username string) string {
	if strings.Contains(username, "@") {
		return normalizeEmail(username)
	}
	return normalizePhone(username)
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func optionalKey(key string) string {
	return strings.TrimSpace(key)
}
