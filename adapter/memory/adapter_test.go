package memory

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/ezraisw/kvmutex"
	"github.com/ezraisw/kvmutex/adapter"
	"github.com/ezraisw/kvmutex/adapter/adaptertest"
	"github.com/ezraisw/kvmutex/codec/msgpack"
	"github.com/ezraisw/kvmutex/logger/std"
	"github.com/karlseguin/ccache/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(t *testing.T) adapter.Adapter {
	return NewAdapter()
}

func TestAdapter(t *testing.T) {
	adaptertest.RunAdapterTests(t, "Memory", newTestAdapter, adaptertest.Sleep)
}

func TestMutex(t *testing.T) {
	adaptertest.RunMutexTests(t, "Memory", newTestAdapter, adaptertest.Sleep)
}

func TestConfiguration(t *testing.T) {
	a := NewAdapterWithConfiguration(ccache.Configure().MaxSize(10))
	ctx := context.Background()

	require.NoError(t, a.Set(ctx, "key", time.Minute, []byte("value")))
	data, err := a.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), data)
}

func TestSetCopiesData(t *testing.T) {
	a := NewAdapter()
	ctx := context.Background()

	buf := []byte("value")
	require.NoError(t, a.Set(ctx, "key", 0, buf))
	buf[0] = 'V'

	data, err := a.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), data)
}

func TestKeyedLocksAreReleased(t *testing.T) {
	a := NewAdapter().(*memoryAdapter)
	ctx := context.Background()

	require.NoError(t, a.Set(ctx, "key", 0, []byte("value")))
	_, err := a.SetIfAbsent(ctx, "other", 0, []byte("value"))
	require.NoError(t, err)
	_, err = a.DeleteIfEqual(ctx, "key", []byte("value"))
	require.NoError(t, err)
	require.NoError(t, a.Delete(ctx, "other"))

	assert.Zero(t, a.multiMutex.Len())
}

func TestRecordsWithoutTTLAreNotEvicted(t *testing.T) {
	// More than ccache's default MaxSize of 5000.
	const events = 6000

	m := kvmutex.New(NewAdapter(), msgpack.NewCodec(), std.NewNopLogger())

	for i := 0; i < events; i++ {
		_, err := m.Lock("ev"+strconv.Itoa(i), 0)
		require.NoError(t, err)
	}

	for i := 0; i < events; i++ {
		locked, err := m.IsLocked("ev" + strconv.Itoa(i))
		require.NoError(t, err)
		require.True(t, locked, "ev%d", i)
	}

	_, err := m.Lock("ev0", 0)
	assert.ErrorIs(t, err, kvmutex.ErrDoubleLock)
}

func TestSizeLimitOnlyAppliesToTTLRecords(t *testing.T) {
	a := NewAdapterWithConfiguration(ccache.Configure().MaxSize(10).ItemsToPrune(5))
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		require.NoError(t, a.Set(ctx, "key"+strconv.Itoa(i), 0, []byte("value")))
	}

	for i := 0; i < 100; i++ {
		data, err := a.Get(ctx, "key"+strconv.Itoa(i))
		require.NoError(t, err)
		assert.Equal(t, []byte("value"), data)
	}
}

func TestSetSwitchesBetweenTTLAndPersistent(t *testing.T) {
	a := NewAdapter()
	ctx := context.Background()

	require.NoError(t, a.Set(ctx, "key", 0, []byte("forever")))
	require.NoError(t, a.Set(ctx, "key", 20*time.Millisecond, []byte("short")))

	data, err := a.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("short"), data)

	time.Sleep(40 * time.Millisecond)
	_, err = a.Get(ctx, "key")
	assert.ErrorIs(t, err, adapter.ErrNotFound)

	require.NoError(t, a.Set(ctx, "key", 0, []byte("forever")))
	stored, err := a.SetIfAbsent(ctx, "key", 0, []byte("other"))
	require.NoError(t, err)
	assert.False(t, stored)

	deleted, err := a.DeleteIfEqual(ctx, "key", []byte("forever"))
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = a.Get(ctx, "key")
	assert.ErrorIs(t, err, adapter.ErrNotFound)
}
