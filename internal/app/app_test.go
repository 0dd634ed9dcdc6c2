package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wedding/internal/auth"
	"wedding/internal/config"
	"wedding/internal/guest"
	"wedding/internal/records"
)

func testConfig(t *testing.T) config.App {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.StoreBackend = config.BackendMemory
	cfg.ContentFile = filepath.Join(t.TempDir(), "missing.yaml")
	return cfg
}

func TestOpen_MemoryBackend(t *testing.T) {
	a, err := Open(context.Background(), testConfig(t), zerolog.Nop(), Options{})
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &records.Memory{}, a.Store)
	assert.Nil(t, a.Redis)
	assert.Empty(t, a.Health(context.Background()))
	assert.NotEmpty(t, a.Content.IDs())
	assert.NotNil(t, a.Handler())
}

func TestOpen_SQLiteBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.StoreBackend = config.BackendSQL
	cfg.DatabaseURL = filepath.Join(t.TempDir(), "w.db")

	a, err := Open(context.Background(), cfg, zerolog.Nop(), Options{})
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, map[string]bool{"db": true}, a.Health(context.Background()))
}

func TestOpen_DirectAttemptsAreStored(t *testing.T) {
	ctx := context.Background()
	a, err := Open(ctx, testConfig(t), zerolog.Nop(), Options{DirectAttempts: true, Sessions: auth.NewMemorySessions()})
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Guests.Submit(ctx, guest.NewRSVP{FirstName: "Ann", LastName: "Lee", Email: "ann@x.com"})
	require.NoError(t, err)
	_, err = a.Auth.Login(ctx, auth.StorageKey, auth.Candidate{FirstName: "Ann", LastName: "Lee", Email: "other@x.com"})
	require.NoError(t, err)

	list, err := a.Attempts.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Success)
	assert.Equal(t, 2, list[0].FieldsMatched)
}
