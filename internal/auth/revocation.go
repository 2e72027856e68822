package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationList remembers revoked token ids until the token would have expired anyway.
type RevocationList interface {
	// Revoke reports false when the jti was already revoked.
	Revoke(ctx context.Context, jti string, expiresAt time.Time) (bool, error)
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// minRevocationTTL keeps entries for tokens that are about to expire.
const minRevocationTTL = time.Second

// RedisRevocationList stores revoked ids as keys with a TTL.
// Key format: revoked:<jti>
type RedisRevocationList struct {
	client *redis.Client
}

// NewRedisRevocationList wraps the given Redis client.
func NewRedisRevocationList(client *redis.Client) *RedisRevocationList {
	return &RedisRevocationList{client: client}
}

func (l *RedisRevocationList) Revoke(ctx context.Context, jti string, expiresAt time.Time) (bool, error) {
	ttl := time.Until(expiresAt)
	if ttl < minRevocationTTL {
		ttl = minRevocationTTL
	}
	ok, err := l.client.SetNX(ctx, l.key(jti), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("revoke token: %w", err)
	}
	return ok, nil
}

func (l *RedisRevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := l.client.Exists(ctx, l.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("revocation check: %w", err)
	}
	return n > 0, nil
}

func (l *RedisRevocationList) key(jti string) string {
	return "revoked:" + jti
}

// MemoryRevocationList is a process-local revocation list.
type MemoryRevocationList struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocationList builds an empty list.
func NewMemoryRevocationList() *MemoryRevocationList {
	return &MemoryRevocationList{entries: make(map[string]time.Time), now: time.Now}
}

func (l *MemoryRevocationList) Revoke(_ context.Context, jti string, expiresAt time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.pruneLocked(now)
	if _, exists := l.entries[jti]; exists {
		return false, nil
	}
	if floor := now.Add(minRevocationTTL); expiresAt.Before(floor) {
		expiresAt = floor
	}
	l.entries[jti] = expiresAt
	return true, nil
}

func (l *MemoryRevocationList) IsRevoked(_ context.Context, jti string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	expiresAt, exists := l.entries[jti]
	return exists && l.now().Before(expiresAt), nil
}

// Len reports the number of live entries.
func (l *MemoryRevocationList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked(l.now())
	return len(l.entries)
}

func (l *MemoryRevocationList) pruneLocked(now time.Time) {
	for jti, expiresAt := range l.entries {
		if !now.Before(expiresAt) {
			delete(l.entries, jti)
		}
	}
}
