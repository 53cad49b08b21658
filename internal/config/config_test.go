package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitway/bitway-api/internal/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 24*time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, time.Hour, cfg.ResetTokenTTL)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, domain.Amount(100_000_000), cfg.Kafka.LargeSettlementThreshold)
	assert.False(t, cfg.SMS.Enabled())
}

func TestLoadPrefixedAlias(t *testing.T) {
	t.Setenv("BITWAY_JWT_SECRET", testSecret)
	t.Setenv("BITWAY_KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("BITWAY_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
}

func TestLoadRejectsShortSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("RESET_TOKEN_TTL", "soon")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RESET_TOKEN_TTL")
}

func TestLoadRejectsNegativeThreshold(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("LARGE_SETTLEMENT_THRESHOLD", "-5")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadAdminSeed(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("ADMIN_EMAIL", " ops@bitway.ng ")
	t.Setenv("ADMIN_PHONE", "+2348099999999")
	t.Setenv("ADMIN_PASSWORD", "admin-password")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Admin.Enabled())
	assert.Equal(t, "ops@bitway.ng", cfg.Admin.Email)
	assert.Equal(t, "admin-password", cfg.Admin.Password)
}

func TestLoadAdminSeedNeedsPassword(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("ADMIN_EMAIL", "ops@bitway.ng")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ADMIN_PASSWORD")
}
