package memory

import (
	"bytes"
	"context"
	gosync "sync"
	"time"

	"github.com/ezraisw/kvmutex/adapter"
	"github.com/ezraisw/kvmutex/adapter/util/mutex"
	"github.com/ezraisw/kvmutex/adapter/util/mutex/sync"
	"github.com/karlseguin/ccache/v2"
)

type memoryAdapter struct {
	cache      *ccache.Cache
	multiMutex *mutex.MultiMutex

	// Records without a TTL never go into the cache, whose LRU would evict them.
	persistent   map[string][]byte
	persistentMu gosync.RWMutex
}

// Adapter is an in-process store. It also implements adapter.Conditional.
type Adapter interface {
	adapter.Adapter
	adapter.Conditional
}

func NewAdapter() Adapter {
	return NewAdapterWithConfiguration(ccache.Configure())
}

// NewAdapterWithConfiguration uses cacheCfg for records that carry a TTL.
// Its size limit only ever evicts those; records stored with ttl <= 0 are
// kept until deleted.
func NewAdapterWithConfiguration(cacheCfg *ccache.Configuration) Adapter {
	return &memoryAdapter{
		cache:      ccache.New(cacheCfg),
		multiMutex: mutex.NewMultiMutex(sync.NewMutexFactory()),
		persistent: make(map[string][]byte),
	}
}

func (a *memoryAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	value, ok := a.get(key)
	if !ok {
		return nil, adapter.ErrNotFound
	}
	return value, nil
}

func (a *memoryAdapter) Set(ctx context.Context, key string, ttl time.Duration, data []byte) error {
	if err := a.multiMutex.Lock(ctx, key); err != nil {
		return err
	}
	defer a.multiMutex.Unlock(ctx, key)

	a.set(key, ttl, data)
	return nil
}

func (a *memoryAdapter) Delete(ctx context.Context, key string) error {
	if err := a.multiMutex.Lock(ctx, key); err != nil {
		return err
	}
	defer a.multiMutex.Unlock(ctx, key)

	a.delete(key)
	return nil
}

func (a *memoryAdapter) SetIfAbsent(ctx context.Context, key string, ttl time.Duration, data []byte) (bool, error) {
	if err := a.multiMutex.Lock(ctx, key); err != nil {
		return false, err
	}
	defer a.multiMutex.Unlock(ctx, key)

	if _, ok := a.get(key); ok {
		return false, nil
	}

	a.set(key, ttl, data)
	return true, nil
}

func (a *memoryAdapter) DeleteIfEqual(ctx context.Context, key string, data []byte) (bool, error) {
	if err := a.multiMutex.Lock(ctx, key); err != nil {
		return false, err
	}
	defer a.multiMutex.Unlock(ctx, key)

	value, ok := a.get(key)
	if !ok || !bytes.Equal(value, data) {
		return false, nil
	}

	a.delete(key)
	return true, nil
}

func (a *memoryAdapter) get(key string) ([]byte, bool) {
	a.persistentMu.RLock()
	value, ok := a.persistent[key]
	a.persistentMu.RUnlock()
	if ok {
		return value, true
	}

	item := a.cache.Get(key)
	if item == nil || item.Expired() {
		return nil, false
	}

	// Ignore casting errors.
	value, _ = item.Value().([]byte)
	return value, true
}

func (a *memoryAdapter) set(key string, ttl time.Duration, data []byte) {
	// Copy so callers can reuse their buffer.
	value := append([]byte(nil), data...)

	if ttl > 0 {
		a.persistentMu.Lock()
		delete(a.persistent, key)
		a.persistentMu.Unlock()

		a.cache.Set(key, value, ttl)
		return
	}

	a.cache.Delete(key)

	a.persistentMu.Lock()
	a.persistent[key] = value
	a.persistentMu.Unlock()
}

func (a *memoryAdapter) delete(key string) {
	a.persistentMu.Lock()
	delete(a.persistent, key)
	a.persistentMu.Unlock()

	a.cache.Delete(key)
}
