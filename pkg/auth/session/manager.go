package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/lojafacil/lojas-backend/pkg/config"
	redisclient "github.com/lojafacil/lojas-backend/pkg/redis"
)

// ErrNoSession is returned when an access id has no live record.
var ErrNoSession = errors.New("session not found")

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
}

type sessionKeyer interface {
	AccessSessionKey(accessID string) string
	UserSessionsKey(userID string) string
}

// Manager stores one record per login keyed by the cookie token's jti, plus a
// per-user index so every session of a user can be dropped at once.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
}

// Checker exposes the read-only surface needed by middleware.
type Checker interface {
	Lookup(ctx context.Context, accessID string) (uuid.UUID, error)
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	ttl := cfg.SessionTTL()
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &Manager{store: client, keyer: client, ttl: ttl}, nil
}

// TTL reports the lifetime of new sessions.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Create opens a session for userID and returns its access id.
func (m *Manager) Create(ctx context.Context, userID uuid.UUID) (string, error) {
	if userID == uuid.Nil {
		return "", fmt.Errorf("user id is required")
	}
	accessID := NewAccessID()
	if err := m.store.Set(ctx, m.keyer.AccessSessionKey(accessID), userID.String(), m.ttl); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	index := m.keyer.UserSessionsKey(userID.String())
	if err := m.store.SAdd(ctx, index, accessID); err != nil {
		return "", fmt.Errorf("index session: %w", err)
	}
	if err := m.store.Expire(ctx, index, m.ttl); err != nil {
		return "", fmt.Errorf("expire session index: %w", err)
	}
	return accessID, nil
}

// Lookup returns the user bound to accessID or ErrNoSession.
func (m *Manager) Lookup(ctx context.Context, accessID string) (uuid.UUID, error) {
	if strings.TrimSpace(accessID) == "" {
		return uuid.Nil, ErrNoSession
	}
	raw, err := m.store.Get(ctx, m.keyer.AccessSessionKey(accessID))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return uuid.Nil, ErrNoSession
		}
		return uuid.Nil, err
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrNoSession
	}
	return userID, nil
}

// Revoke deletes the session tied to the access identifier. Unknown ids are a no-op.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return nil
	}
	key := m.keyer.AccessSessionKey(accessID)
	raw, err := m.store.Get(ctx, key)
	if err != nil && !errors.Is(err, redislib.Nil) {
		return err
	}
	if err := m.store.Del(ctx, key); err != nil {
		return err
	}
	if raw != "" {
		return m.store.SRem(ctx, m.keyer.UserSessionsKey(raw), accessID)
	}
	return nil
}

// RevokeAll deletes every session of userID.
func (m *Manager) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	index := m.keyer.UserSessionsKey(userID.String())
	ids, err := m.store.SMembers(ctx, index)
	if err != nil && !errors.Is(err, redislib.Nil) {
		return err
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, m.keyer.AccessSessionKey(id))
	}
	keys = append(keys, index)
	return m.store.Del(ctx, keys...)
}

// NewAccessID produces the identifier used as the JWT jti/Redis key.
func NewAccessID() string {
	return uuid.NewString()
}
