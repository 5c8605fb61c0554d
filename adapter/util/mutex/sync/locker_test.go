package sync

import (
	"context"
	"testing"
	"time"

	"github.com/ezraisw/kvmutex/adapter"
	"github.com/ezraisw/kvmutex/adapter/util/mutex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocker(t *testing.T) {
	locker := NewLocker()
	ctx := context.Background()

	lock, err := locker.Obtain(ctx, "key")
	require.NoError(t, err)

	timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = locker.Obtain(timeoutCtx, "key")
	assert.ErrorIs(t, err, adapter.ErrFailedLock)

	require.NoError(t, lock.Release(ctx))

	lock, err = locker.Obtain(ctx, "key")
	require.NoError(t, err)
	require.NoError(t, lock.Release(ctx))

	// The key is forgotten once released.
	assert.ErrorIs(t, lock.Release(ctx), adapter.ErrFailedUnlock)
}

func TestMutexUnlockNotHeld(t *testing.T) {
	m := NewMutexFactory().Make("key")

	assert.ErrorIs(t, m.Unlock(context.Background()), mutex.ErrNotHeld)
}
