package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCredential() Credential {
	return Credential{
		FirstName:       "Ann",
		LastName:        "Lee",
		Email:           "ann@x.com",
		AuthenticatedAt: time.Date(2026, 6, 20, 15, 0, 0, 0, time.UTC),
	}
}

func TestMemorySessions_ClearsCorruptAndIncomplete(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySessions()

	for name, raw := range map[string]string{
		"corrupt":    `{"first_name": "Ann"`,
		"incomplete": `{"first_name":"Ann","last_name":"Lee","email":"ann@x.com"}`,
	} {
		t.Run(name, func(t *testing.T) {
			s.Put(StorageKey, []byte(raw))
			c, err := s.Load(ctx, StorageKey)
			require.NoError(t, err)
			assert.Nil(t, c)

			s.mu.Lock()
			_, still := s.data[StorageKey]
			s.mu.Unlock()
			assert.False(t, still)
		})
	}
}

func TestFileSessions_RoundTripAndCorruption(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "sessions")
	s := NewFileSessions(dir)

	c, err := s.Load(ctx, StorageKey)
	require.NoError(t, err)
	assert.Nil(t, c)

	want := validCredential()
	require.NoError(t, s.Save(ctx, StorageKey, want))

	got, err := s.Load(ctx, StorageKey)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)

	path := filepath.Join(dir, StorageKey+".json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))
	got, err = s.Load(ctx, StorageKey)
	require.NoError(t, err)
	assert.Nil(t, got)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, s.Clear(ctx, StorageKey))
	assert.Error(t, s.Save(ctx, "../escape", want))
}

func TestRedisSessions_RoundTripAndCorruption(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := NewRedisSessions(client, time.Hour)
	redisKey := "wedding:session:" + StorageKey

	c, err := s.Load(ctx, StorageKey)
	require.NoError(t, err)
	assert.Nil(t, c, "missing key loads as nothing")

	require.NoError(t, s.Save(ctx, StorageKey, validCredential()))
	assert.Equal(t, time.Hour, mr.TTL(redisKey))

	c, err = s.Load(ctx, StorageKey)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, validCredential().Email, c.Email)
	assert.True(t, validCredential().AuthenticatedAt.Equal(c.AuthenticatedAt))

	for name, raw := range map[string]string{
		"corrupt":    "not json",
		"incomplete": `{"first_name":"Ann","last_name":"Lee","email":"ann@x.com"}`,
	} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, mr.Set(redisKey, raw))
			c, err := s.Load(ctx, StorageKey)
			require.NoError(t, err)
			assert.Nil(t, c)
			assert.False(t, mr.Exists(redisKey), "unusable entry is deleted")
		})
	}

	require.NoError(t, s.Save(ctx, StorageKey, validCredential()))
	require.NoError(t, s.Clear(ctx, StorageKey))
	assert.False(t, mr.Exists(redisKey))
	c, err = s.Load(ctx, StorageKey)
	require.NoError(t, err)
	assert.Nil(t, c)
}
