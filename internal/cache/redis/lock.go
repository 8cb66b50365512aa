// Package redis provides the distributed sweep lock. Sweeps are cooperative
// polls; when several engine replicas run, only the lock holder executes a
// given sweep cycle.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/koensakamoto/friendbet/internal/config"
)

// ErrLockHeld is returned when another holder owns the lock.
var ErrLockHeld = errors.New("redis: lock held")

// unlockLua deletes a lock key only if its value matches the caller's token,
// so one holder cannot release another holder's lock.
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// LockManager implements a SETNX+TTL lock with conditional unlock.
type LockManager struct {
	rdb      *redis.Client
	unlockSc *redis.Script
	ttl      time.Duration
}

// NewLockManager connects to redis per config. Returns nil when no address
// is configured; callers treat a nil manager as "no locking".
func NewLockManager(cfg config.RedisConfig) *LockManager {
	if cfg.Addr == "" {
		return nil
	}
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &LockManager{
		rdb: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		unlockSc: redis.NewScript(unlockLua),
		ttl:      ttl,
	}
}

func (lm *LockManager) Close() error {
	if lm == nil || lm.rdb == nil {
		return nil
	}
	return lm.rdb.Close()
}

// Acquire obtains the named lock for the manager's TTL. On success it
// returns an unlock function that is safe to call more than once. It returns
// ErrLockHeld when another party holds the lock.
func (lm *LockManager) Acquire(ctx context.Context, key string) (func(), error) {
	if lm == nil || lm.rdb == nil {
		// No redis configured: act as a no-op lock.
		return func() {}, nil
	}
	token := uuid.New().String()
	lk := "lock:" + key

	ok, err := lm.rdb.SetNX(ctx, lk, token, lm.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}

	released := false
	unlock := func() {
		if released {
			return
		}
		released = true
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = lm.unlockSc.Run(unlockCtx, lm.rdb, []string{lk}, token).Err()
	}
	return unlock, nil
}
