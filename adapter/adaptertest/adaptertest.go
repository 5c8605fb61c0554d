// Package adaptertest holds the behaviour every adapter.Adapter is expected
// to show, so each backend can run the same checks.
package adaptertest

import (
	"context"
	"testing"
	"time"

	"github.com/ezraisw/kvmutex"
	"github.com/ezraisw/kvmutex/adapter"
	"github.com/ezraisw/kvmutex/codec/msgpack"
	"github.com/ezraisw/kvmutex/logger/std"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty adapter.
type Factory func(t *testing.T) adapter.Adapter

// AdvanceFunc moves the store clock forward by d. Real stores sleep,
// fakes such as miniredis fast forward.
type AdvanceFunc func(d time.Duration)

// Sleep is an AdvanceFunc for stores running on the wall clock.
func Sleep(d time.Duration) {
	time.Sleep(d)
}

// RunAdapterTests checks the store contract, including adapter.Conditional
// when the adapter implements it.
func RunAdapterTests(t *testing.T, name string, factory Factory, advance AdvanceFunc) {
	t.Run(name, func(t *testing.T) {
		t.Run("SetGet", func(t *testing.T) {
			testSetGet(t, factory(t))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory(t))
		})

		t.Run("TTL", func(t *testing.T) {
			testTTL(t, factory(t), advance)
		})

		t.Run("SetIfAbsent", func(t *testing.T) {
			testSetIfAbsent(t, requireConditional(t, factory(t)), advance)
		})

		t.Run("DeleteIfEqual", func(t *testing.T) {
			testDeleteIfEqual(t, requireConditional(t, factory(t)))
		})
	})
}

// RunMutexTests runs the lock lifecycle against a mutex backed by the adapter,
// once with check-then-set and once atomically when supported.
func RunMutexTests(t *testing.T, name string, factory Factory, advance AdvanceFunc) {
	t.Run(name, func(t *testing.T) {
		t.Run("Lifecycle", func(t *testing.T) {
			testLifecycle(t, newMutex(factory(t)))
		})

		t.Run("Expiry", func(t *testing.T) {
			testExpiry(t, newMutex(factory(t)), advance)
		})

		t.Run("AtomicLifecycle", func(t *testing.T) {
			testLifecycle(t, newMutex(requireConditional(t, factory(t))).SetAtomic(true))
		})

		t.Run("AtomicExpiry", func(t *testing.T) {
			testExpiry(t, newMutex(requireConditional(t, factory(t))).SetAtomic(true), advance)
		})
	})
}

func requireConditional(t *testing.T, a adapter.Adapter) adapter.Adapter {
	if _, ok := a.(adapter.Conditional); !ok {
		t.Skip("adapter does not implement adapter.Conditional")
	}
	return a
}

func newMutex(a adapter.Adapter) kvmutex.Mutex {
	return kvmutex.New(a, msgpack.NewCodec(), std.NewNopLogger()).SetPrefix("test")
}

func testSetGet(t *testing.T, a adapter.Adapter) {
	ctx := context.Background()

	_, err := a.Get(ctx, "key")
	assert.ErrorIs(t, err, adapter.ErrNotFound)

	require.NoError(t, a.Set(ctx, "key", 0, []byte("value")))
	data, err := a.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), data)

	require.NoError(t, a.Set(ctx, "key", 0, []byte("other")))
	data, err = a.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("other"), data)
}

func testDelete(t *testing.T, a adapter.Adapter) {
	ctx := context.Background()

	require.NoError(t, a.Set(ctx, "key", 0, []byte("value")))
	require.NoError(t, a.Delete(ctx, "key"))

	_, err := a.Get(ctx, "key")
	assert.ErrorIs(t, err, adapter.ErrNotFound)

	// Missing keys delete fine.
	assert.NoError(t, a.Delete(ctx, "key"))
}

func testTTL(t *testing.T, a adapter.Adapter, advance AdvanceFunc) {
	ctx := context.Background()

	require.NoError(t, a.Set(ctx, "short", 50*time.Millisecond, []byte("value")))
	require.NoError(t, a.Set(ctx, "forever", 0, []byte("value")))

	_, err := a.Get(ctx, "short")
	require.NoError(t, err)

	advance(100 * time.Millisecond)

	_, err = a.Get(ctx, "short")
	assert.ErrorIs(t, err, adapter.ErrNotFound)

	_, err = a.Get(ctx, "forever")
	assert.NoError(t, err)
}

func testSetIfAbsent(t *testing.T, a adapter.Adapter, advance AdvanceFunc) {
	ctx := context.Background()
	cond := a.(adapter.Conditional)

	ok, err := cond.SetIfAbsent(ctx, "key", 50*time.Millisecond, []byte("first"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cond.SetIfAbsent(ctx, "key", 0, []byte("second"))
	require.NoError(t, err)
	assert.False(t, ok)

	data, err := a.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), data)

	advance(100 * time.Millisecond)

	ok, err = cond.SetIfAbsent(ctx, "key", 0, []byte("third"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func testDeleteIfEqual(t *testing.T, a adapter.Adapter) {
	ctx := context.Background()
	cond := a.(adapter.Conditional)

	ok, err := cond.DeleteIfEqual(ctx, "key", []byte("value"))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.Set(ctx, "key", 0, []byte("value")))

	ok, err = cond.DeleteIfEqual(ctx, "key", []byte("other"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = cond.DeleteIfEqual(ctx, "key", []byte("value"))
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = a.Get(ctx, "key")
	assert.ErrorIs(t, err, adapter.ErrNotFound)
}

func testLifecycle(t *testing.T, m kvmutex.Mutex) {
	locked, err := m.IsLocked("build")
	require.NoError(t, err)
	assert.False(t, locked)

	owner, err := m.Lock("build", 5*time.Second)
	require.NoError(t, err)
	require.NotEmpty(t, owner)

	current, ok, err := m.Owner("build")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, owner, current)

	_, err = m.Lock("build", 0)
	assert.ErrorIs(t, err, kvmutex.ErrDoubleLock)

	released, err := m.Unlock("build", "not-"+owner)
	require.NoError(t, err)
	assert.False(t, released)

	released, err = m.Unlock("build", owner)
	require.NoError(t, err)
	assert.True(t, released)

	locked, err = m.IsLocked("build")
	require.NoError(t, err)
	assert.False(t, locked)

	released, err = m.Unlock("build", owner)
	require.NoError(t, err)
	assert.True(t, released)

	_, err = m.Lock("build", 0)
	require.NoError(t, err)

	released, err = m.ForceUnlock("build")
	require.NoError(t, err)
	assert.True(t, released)
}

func testExpiry(t *testing.T, m kvmutex.Mutex, advance AdvanceFunc) {
	_, err := m.Lock("build", 50*time.Millisecond)
	require.NoError(t, err)

	advance(100 * time.Millisecond)

	locked, err := m.IsLocked("build")
	require.NoError(t, err)
	assert.False(t, locked)

	_, err = m.Lock("build", 0)
	assert.NoError(t, err)
}
