package redislock

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/ezraisw/kvmutex/adapter"
	"github.com/ezraisw/kvmutex/adapter/util/mutex"
)

const (
	DefaultLockTTL = 5 * time.Second
	DefaultRetries = 32
)

type redislockLocker struct {
	lc       *redislock.Client
	lockTtl  time.Duration
	strategy redislock.RetryStrategy
}

// NewLocker returns a Locker backed by bsm/redislock. Obtain retries with an
// exponential backoff up to retries times; a lockTtl of zero uses DefaultLockTTL.
func NewLocker(client redislock.RedisClient, lockTtl time.Duration, retries int) mutex.Locker {
	if lockTtl <= 0 {
		lockTtl = DefaultLockTTL
	}
	if retries < 0 {
		retries = DefaultRetries
	}

	return &redislockLocker{
		lc:       redislock.New(client),
		lockTtl:  lockTtl,
		strategy: redislock.LimitRetry(redislock.ExponentialBackoff(16*time.Millisecond, 4096*time.Millisecond), retries),
	}
}

func (lr redislockLocker) Obtain(ctx context.Context, key string) (mutex.Lock, error) {
	lock, err := lr.lc.Obtain(ctx, key, lr.lockTtl, &redislock.Options{
		RetryStrategy: lr.strategy,
	})
	if err != nil {
		return nil, adapter.ErrFailedLock
	}
	return &redislockLock{lock: lock}, nil
}

type redislockLock struct {
	lock *redislock.Lock
}

func (l redislockLock) Release(ctx context.Context) error {
	err := l.lock.Release(ctx)
	if err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
		return adapter.ErrFailedUnlock
	}
	return nil
}
