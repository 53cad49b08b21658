package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-0123456789-test-secret"

func TestTokenManager_RoundTrip(t *testing.T) {
	m := NewTokenManager(testSecret, "bitway", "bitway-api")
	userID := uuid.New()

	issued, err := m.Issue(userID, "customer", "access", time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)

	claims, err := m.Parse(issued.Token, "access")
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserUUID())
	assert.Equal(t, "customer", claims.Role)
	assert.Equal(t, issued.ID, claims.ID)
}

func TestTokenManager_RejectsWrongPurpose(t *testing.T) {
	m := NewTokenManager(testSecret, "bitway", "bitway-api")
	issued, err := m.Issue(uuid.New(), "customer", "password_reset", time.Hour)
	require.NoError(t, err)

	_, err = m.Parse(issued.Token, "access")
	assert.ErrorIs(t, err, ErrWrongPurpose)
}

func TestTokenManager_RejectsExpiredAndForeignTokens(t *testing.T) {
	m := NewTokenManager(testSecret, "bitway", "bitway-api")
	issued, err := m.Issue(uuid.New(), "customer", "access", time.Minute)
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = m.Parse(issued.Token, "access")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewTokenManager(testSecret, "someone-else", "bitway-api")
	foreign, err := other.Issue(uuid.New(), "admin", "access", time.Hour)
	require.NoError(t, err)
	_, err = NewTokenManager(testSecret, "bitway", "bitway-api").Parse(foreign.Token, "access")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsNoneAlgorithm(t *testing.T) {
	m := NewTokenManager(testSecret, "bitway", "bitway-api")
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"user_id": uuid.NewString(),
		"purpose": "access",
		"iss":     "bitway",
		"aud":     "bitway-api",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.Parse(signed, "access")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHashAndCheckSecret(t *testing.T) {
	hash, err := HashSecret("1234")
	require.NoError(t, err)

	ok, err := CheckSecret(hash, "1234")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckSecret(hash, "4321")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = CheckSecret("", "1234")
	require.NoError(t, err)
	assert.False(t, ok)
}
