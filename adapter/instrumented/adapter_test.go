package instrumented

import (
	"context"
	"testing"
	"time"

	"github.com/ezraisw/kvmutex/adapter"
	"github.com/ezraisw/kvmutex/adapter/adaptertest"
	"github.com/ezraisw/kvmutex/adapter/memory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type plainAdapter struct {
	adapter.Adapter
}

func TestAdapter(t *testing.T) {
	adaptertest.RunAdapterTests(t, "Instrumented", func(t *testing.T) adapter.Adapter {
		return NewAdapter(memory.NewAdapter(), NewCounter("test"))
	}, adaptertest.Sleep)
}

func TestMutex(t *testing.T) {
	adaptertest.RunMutexTests(t, "Instrumented", func(t *testing.T) adapter.Adapter {
		return NewAdapter(memory.NewAdapter(), NewCounter("test"))
	}, adaptertest.Sleep)
}

func TestCounts(t *testing.T) {
	counter := NewCounter("test")
	a := NewAdapter(memory.NewAdapter(), counter)
	ctx := context.Background()

	_, _ = a.Get(ctx, "key")
	require.NoError(t, a.Set(ctx, "key", time.Minute, []byte("value")))
	_, _ = a.Get(ctx, "key")
	require.NoError(t, a.Delete(ctx, "key"))

	cond, ok := a.(adapter.Conditional)
	require.True(t, ok)
	_, _ = cond.SetIfAbsent(ctx, "key", 0, []byte("value"))
	_, _ = cond.SetIfAbsent(ctx, "key", 0, []byte("value"))
	_, _ = cond.DeleteIfEqual(ctx, "key", []byte("other"))
	_, _ = cond.DeleteIfEqual(ctx, "key", []byte("value"))

	assert.Equal(t, 1.0, testutil.ToFloat64(counter.WithLabelValues(OpGet, ResultMiss)))
	assert.Equal(t, 1.0, testutil.ToFloat64(counter.WithLabelValues(OpGet, ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(counter.WithLabelValues(OpSet, ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(counter.WithLabelValues(OpDelete, ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(counter.WithLabelValues(OpSetIfAbsent, ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(counter.WithLabelValues(OpSetIfAbsent, ResultRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(counter.WithLabelValues(OpDeleteIfEqual, ResultRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(counter.WithLabelValues(OpDeleteIfEqual, ResultOK)))
}

func TestPlainAdapterStaysPlain(t *testing.T) {
	a := NewAdapter(plainAdapter{memory.NewAdapter()}, NewCounter("test"))

	_, ok := a.(adapter.Conditional)
	assert.False(t, ok)
}

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := NewCounter("test")
	require.NoError(t, reg.Register(counter))

	a := NewAdapter(memory.NewAdapter(), counter)
	require.NoError(t, a.Set(context.Background(), "key", 0, []byte("value")))

	count, err := testutil.GatherAndCount(reg, "test_kvmutex_store_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
