package kvmutex_test

import (
	"context"
	"errors"
	"time"

	"github.com/ezraisw/kvmutex/adapter"
	"github.com/ezraisw/kvmutex/adapter/util/mutex"
)

var errMock = errors.New("mock error")

type ctxKey string

type proxiedAdapter struct {
	adapter adapter.Adapter

	getOverride    func(context.Context, string) ([]byte, error)
	setOverride    func(context.Context, string, time.Duration, []byte) error
	deleteOverride func(context.Context, string) error
}

func (a proxiedAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	if a.getOverride != nil {
		return a.getOverride(ctx, key)
	}

	return a.adapter.Get(ctx, key)
}

func (a proxiedAdapter) Set(ctx context.Context, key string, ttl time.Duration, data []byte) error {
	if a.setOverride != nil {
		return a.setOverride(ctx, key, ttl, data)
	}

	return a.adapter.Set(ctx, key, ttl, data)
}

func (a proxiedAdapter) Delete(ctx context.Context, key string) error {
	if a.deleteOverride != nil {
		return a.deleteOverride(ctx, key)
	}

	return a.adapter.Delete(ctx, key)
}

type proxiedLocker struct {
	obtainOverride func(context.Context, string) (mutex.Lock, error)
	locker         mutex.Locker
}

func (l proxiedLocker) Obtain(ctx context.Context, key string) (mutex.Lock, error) {
	if l.obtainOverride != nil {
		return l.obtainOverride(ctx, key)
	}

	return l.locker.Obtain(ctx, key)
}

func fixedOwner(owner string) func() (string, error) {
	return func() (string, error) {
		return owner, nil
	}
}
