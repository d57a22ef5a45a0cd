package auth

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationList rejects tokens by JWT ID until they would have expired on
// their own.
type RevocationList interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// MemoryRevocationList keeps revoked IDs in process memory. Expired entries
// are swept on write.
type MemoryRevocationList struct {
	mu      sync.RWMutex
	entries map[string]time.Time // jti -> token expiry
	now     func() time.Time
}

func NewMemoryRevocationList() *MemoryRevocationList {
	return &MemoryRevocationList{entries: make(map[string]time.Time), now: time.Now}
}

func (l *MemoryRevocationList) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for id, exp := range l.entries {
		if !exp.After(now) {
			delete(l.entries, id)
		}
	}
	if expiresAt.After(now) {
		l.entries[jti] = expiresAt
	}
	return nil
}

func (l *MemoryRevocationList) IsRevoked(_ context.Context, jti string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	exp, ok := l.entries[jti]
	return ok && exp.After(l.now()), nil
}

// Len returns the number of tracked entries, expired or not.
func (l *MemoryRevocationList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// RedisRevocationList shares revocations across instances. Each key lives
// exactly as long as the token it blocks.
type RedisRevocationList struct {
	rdb    redis.Cmdable
	prefix string
	now    func() time.Time
}

func NewRedisRevocationList(rdb redis.Cmdable, prefix string) *RedisRevocationList {
	return &RedisRevocationList{rdb: rdb, prefix: prefix, now: time.Now}
}

func (l *RedisRevocationList) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(l.now())
	if ttl <= 0 {
		return nil
	}
	return l.rdb.Set(ctx, l.prefix+jti, 1, ttl).Err()
}

func (l *RedisRevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := l.rdb.Exists(ctx, l.prefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
