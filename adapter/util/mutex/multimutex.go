package mutex

import (
	"context"
	"sync"

	"github.com/ezraisw/kvmutex/adapter"
)

// MultiMutex keeps one Mutex per key for as long as someone holds or waits on it.
type MultiMutex struct {
	mutexFactory MutexFactory
	mutexes      map[string]Mutex
	refs         map[string]int
	mu           sync.Mutex
}

func NewMultiMutex(mutexFactory MutexFactory) *MultiMutex {
	return &MultiMutex{
		mutexFactory: mutexFactory,
		mutexes:      make(map[string]Mutex),
		refs:         make(map[string]int),
	}
}

func (m *MultiMutex) Lock(ctx context.Context, key string) error {
	mutex := m.acquireRef(key)
	if err := mutex.Lock(ctx); err != nil {
		// Never held, drop the reference taken above.
		m.releaseRef(key)
		return err
	}
	return nil
}

func (m *MultiMutex) Unlock(ctx context.Context, key string) error {
	m.mu.Lock()
	mutex, ok := m.mutexes[key]
	m.mu.Unlock()
	if !ok {
		return adapter.ErrFailedUnlock
	}

	if err := mutex.Unlock(ctx); err != nil {
		return err
	}
	m.releaseRef(key)
	return nil
}

// Len returns the number of keys currently tracked.
func (m *MultiMutex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.mutexes)
}

func (m *MultiMutex) acquireRef(key string) Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	mutex, ok := m.mutexes[key]
	if !ok {
		mutex = m.mutexFactory.Make(key)
		m.mutexes[key] = mutex
	}
	m.refs[key]++

	return mutex
}

func (m *MultiMutex) releaseRef(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.refs[key]--
	if m.refs[key] <= 0 {
		delete(m.mutexes, key)
		delete(m.refs, key)
	}
}
