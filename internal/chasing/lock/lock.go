// Package lock provides the TTL-based mutual exclusion that serializes
// chasing runs per cadence across processes.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// Locker hands out cadence locks backed by a TTL key-value store.
type Locker struct {
	client *redis.Client
	script *redis.Script
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
	}
}

// ForCadence returns the lock handle for one cadence. All handles for the
// same cadence id compete for the same key.
func (l *Locker) ForCadence(cadenceID snowflake.ID) *CadenceLock {
	return &CadenceLock{
		locker: l,
		key:    fmt.Sprintf("chasing:cadence:%s", cadenceID.String()),
	}
}

// CadenceLock is one holder's view of a cadence lock. The token ties release
// to the acquisition that created it, so an expired lock taken over by
// another runner is never released by the first.
type CadenceLock struct {
	locker *Locker

	mu    sync.Mutex
	key   string
	token string
}

// Acquire attempts to take the lock for the given TTL. A non-positive TTL
// always fails immediately: it means "do not actually hold a lock". An
// expired lock is acquirable by the next caller without manual cleanup.
func (c *CadenceLock) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	if c == nil || c.locker == nil || c.locker.client == nil {
		return false, errors.New("lock client not configured")
	}
	if ttl <= 0 {
		return false, nil
	}

	token := uuid.NewString()
	ok, err := c.locker.client.SetNX(ctx, c.key, token, ttl).Result()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	return true, nil
}

// HasLock reports whether this handle currently holds the lock.
func (c *CadenceLock) HasLock() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token != ""
}

// Release frees the lock if this handle still owns it.
func (c *CadenceLock) Release(ctx context.Context) error {
	if c == nil || c.locker == nil || c.locker.client == nil {
		return nil
	}
	c.mu.Lock()
	token := c.token
	c.token = ""
	c.mu.Unlock()
	if token == "" {
		return nil
	}
	return c.locker.script.Run(ctx, c.locker.client, []string{c.key}, token).Err()
}
