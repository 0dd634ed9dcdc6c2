package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, BackendSQL, cfg.StoreBackend)
	assert.Equal(t, "sqlite3", cfg.DBDriver)
	assert.Equal(t, 10, cfg.TableCount)
	assert.Equal(t, 720*time.Hour, cfg.SessionTTL)
	assert.False(t, cfg.Production())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("STORE_BACKEND", "rest")
	t.Setenv("SUPABASE_URL", "https://abc.supabase.co")
	t.Setenv("TABLE_COUNT", "14")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("SESSION_BACKEND", "redis")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendREST, cfg.StoreBackend)
	assert.Equal(t, "https://abc.supabase.co", cfg.SupabaseURL)
	assert.Equal(t, 14, cfg.TableCount)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, BackendRedis, cfg.SessionBackend)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("TABLE_COUNT", "0")
	t.Setenv("STORE_BACKEND", "mongo")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TABLE_COUNT")
	assert.Contains(t, err.Error(), "STORE_BACKEND")
}

func TestLoad_UnparsableInt(t *testing.T) {
	t.Setenv("TABLE_COUNT", "ten")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_ProductionNeedsSigningKey(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Env = "production"
	assert.Error(t, cfg.Validate())

	cfg.JWTSigningKey = "a-real-secret"
	assert.NoError(t, cfg.Validate())
}
