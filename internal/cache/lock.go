package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Lock is a best-effort mutual exclusion held in the cache under a key with a TTL.
// The key holds a token unique to the holder.
type Lock struct {
	cache Cache
	key   string
	token string
}

// TryLock acquires key for ttl. It returns nil and no error when someone else holds it.
func TryLock(ctx context.Context, c Cache, key string, ttl time.Duration) (*Lock, error) {
	token := uuid.NewString()
	ok, err := c.SetNX(ctx, key, token, ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, nil
	}
	return &Lock{cache: c, key: key, token: token}, nil
}

// Release deletes the lock key if this holder still owns it. A lock that
// expired and was taken by someone else is left alone.
func (l *Lock) Release(ctx context.Context) (bool, error) {
	released, err := l.cache.DelIfEquals(ctx, l.key, l.token)
	if err != nil {
		return false, fmt.Errorf("failed to release lock %s: %w", l.key, err)
	}
	return released, nil
}

// RefillLockKey is the lock key guarding challenge generation for a user.
func RefillLockKey(userID string) string {
	return "refill:lock:" + userID
}

// LevelsKey caches the Level Table.
const LevelsKey = "levels:v1"
