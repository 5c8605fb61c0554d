package redsync

import (
	"context"
	"time"

	"github.com/ezraisw/kvmutex/adapter"
	"github.com/ezraisw/kvmutex/adapter/util/mutex"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis"
)

type redsyncLocker struct {
	rs   *redsync.Redsync
	opts []redsync.Option
}

// NewLocker returns a Locker running the redlock algorithm over pools.
func NewLocker(pools ...redis.Pool) mutex.Locker {
	return &redsyncLocker{
		rs: redsync.New(pools...),
	}
}

// NewLockerWithExpiry is NewLocker with a custom guard expiry and number of tries.
func NewLockerWithExpiry(expiry time.Duration, tries int, pools ...redis.Pool) mutex.Locker {
	return &redsyncLocker{
		rs: redsync.New(pools...),
		opts: []redsync.Option{
			redsync.WithExpiry(expiry),
			redsync.WithTries(tries),
		},
	}
}

func (lr redsyncLocker) Obtain(ctx context.Context, key string) (mutex.Lock, error) {
	mutex := lr.rs.NewMutex(key, lr.opts...)

	if err := mutex.LockContext(ctx); err != nil {
		return nil, adapter.ErrFailedLock
	}

	return &redsyncLock{mutex: mutex}, nil
}

type redsyncLock struct {
	mutex *redsync.Mutex
}

func (l redsyncLock) Release(ctx context.Context) error {
	ok, err := l.mutex.UnlockContext(ctx)
	if err != nil || !ok {
		return adapter.ErrFailedUnlock
	}
	return nil
}
