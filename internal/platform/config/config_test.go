package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 20*time.Minute, cfg.TokenTTL)
	assert.Empty(t, cfg.Database.URL)
	assert.Empty(t, cfg.Redis.URL)
	assert.Empty(t, cfg.Audit.KafkaBrokers)
	assert.Equal(t, "bucketlist.audit", cfg.Audit.KafkaTopic)
	assert.False(t, cfg.RateLimit.Disabled)
	assert.Equal(t, 10, cfg.RateLimit.AuthRequests)
	assert.Equal(t, time.Minute, cfg.RateLimit.AuthWindow)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("BUCKETLIST_ADDR", ":9090")
	t.Setenv("BUCKETLIST_TOKEN_TTL", "5m")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/bucketlist?sslmode=disable")
	t.Setenv("BUCKETLIST_KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("BUCKETLIST_PUBLIC_BASE_URL", "https://api.example.com/")
	t.Setenv("BUCKETLIST_RATE_LIMIT_AUTH_REQUESTS", "3")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 5*time.Minute, cfg.TokenTTL)
	assert.Equal(t, "postgres://u:p@localhost:5432/bucketlist?sslmode=disable", cfg.Database.URL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Audit.KafkaBrokers)
	assert.Equal(t, "https://api.example.com", cfg.PublicBaseURL)
	assert.Equal(t, 3, cfg.RateLimit.AuthRequests)
}

func TestLoadDotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("BUCKETLIST_LOG_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("BUCKETLIST_LOG_LEVEL") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsDevKeyInProduction(t *testing.T) {
	t.Setenv("BUCKETLIST_ENV", "production")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.ErrorIs(t, err, ErrMissingSigningKey)
}
