package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// StorageKey is the fixed key a single-user client keeps its credential under.
const StorageKey = "wedding_auth_user"

// Credential is proof that a guest passed verification. The identity fields
// hold what the guest typed, not the matched record's values.
type Credential struct {
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	Email           string    `json:"email"`
	AuthenticatedAt time.Time `json:"authenticated_at"`
}

// Valid reports whether every field is present.
func (c Credential) Valid() bool {
	return c.FirstName != "" && c.LastName != "" && c.Email != "" && !c.AuthenticatedAt.IsZero()
}

// Candidate returns the identity carried by the credential.
func (c Credential) Candidate() Candidate {
	return Candidate{FirstName: c.FirstName, LastName: c.LastName, Email: c.Email}
}

// SessionStore holds credentials under opaque keys.
type SessionStore interface {
	// Load returns nil, nil when nothing usable is stored. Corrupt or
	// incomplete entries are cleared.
	Load(ctx context.Context, key string) (*Credential, error)
	Save(ctx context.Context, key string, c Credential) error
	Clear(ctx context.Context, key string) error
}

func encodeCredential(c Credential) ([]byte, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode credential: %w", err)
	}
	return raw, nil
}

// decodeCredential returns false for anything that is not a complete credential.
func decodeCredential(raw []byte) (*Credential, bool) {
	var c Credential
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, false
	}
	if !c.Valid() {
		return nil, false
	}
	return &c, true
}

// MemorySessions keeps credentials in process.
type MemorySessions struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemorySessions creates an empty store.
func NewMemorySessions() *MemorySessions {
	return &MemorySessions{data: make(map[string][]byte)}
}

func (s *MemorySessions) Load(_ context.Context, key string) (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	c, ok := decodeCredential(raw)
	if !ok {
		delete(s.data, key)
		return nil, nil
	}
	return c, nil
}

func (s *MemorySessions) Save(_ context.Context, key string, c Credential) error {
	raw, err := encodeCredential(c)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data[key] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemorySessions) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

// Put stores raw bytes under key as-is.
func (s *MemorySessions) Put(key string, raw []byte) {
	s.mu.Lock()
	s.data[key] = raw
	s.mu.Unlock()
}

// RedisSessions keeps credentials in Redis with a TTL.
type RedisSessions struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisSessions creates a Redis-backed store. A zero ttl keeps entries forever.
func NewRedisSessions(client *redis.Client, ttl time.Duration) *RedisSessions {
	return &RedisSessions{client: client, prefix: "wedding:session:", ttl: ttl}
}

func (s *RedisSessions) Load(ctx context.Context, key string) (*Credential, error) {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	c, ok := decodeCredential(raw)
	if !ok {
		if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
			return nil, fmt.Errorf("clear session: %w", err)
		}
		return nil, nil
	}
	return c, nil
}

func (s *RedisSessions) Save(ctx context.Context, key string, c Credential) error {
	raw, err := encodeCredential(c)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.prefix+key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisSessions) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// FileSessions keeps one JSON file per key in a directory.
type FileSessions struct {
	dir string
}

// NewFileSessions creates a file-backed store rooted at dir.
func NewFileSessions(dir string) *FileSessions {
	return &FileSessions{dir: dir}
}

func (s *FileSessions) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid session key %q", key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}

func (s *FileSessions) Load(_ context.Context, key string) (*Credential, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	c, ok := decodeCredential(raw)
	if !ok {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("clear session: %w", err)
		}
		return nil, nil
	}
	return c, nil
}

func (s *FileSessions) Save(_ context.Context, key string, c Credential) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	raw, err := encodeCredential(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(p, raw, 0o600); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *FileSessions) Clear(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
