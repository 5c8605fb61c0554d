// Package instrumented wraps an adapter.Adapter and counts every store call
// in a prometheus CounterVec labelled by operation and result.
package instrumented

import (
	"context"
	"errors"
	"time"

	"github.com/ezraisw/kvmutex/adapter"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	OpGet           = "get"
	OpSet           = "set"
	OpDelete        = "delete"
	OpSetIfAbsent   = "set_if_absent"
	OpDeleteIfEqual = "delete_if_equal"

	ResultOK       = "ok"
	ResultMiss     = "miss"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// NewCounter returns the counter the adapter reports to. Register it on a
// prometheus.Registerer of your choice.
func NewCounter(namespace string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "kvmutex_store_operations_total",
		Help:      "Total number of store operations performed by kvmutex",
	}, []string{"op", "result"})
}

type instrumentedAdapter struct {
	next    adapter.Adapter
	counter *prometheus.CounterVec
}

type conditionalAdapter struct {
	instrumentedAdapter
	cond adapter.Conditional
}

// NewAdapter wraps next. When next implements adapter.Conditional so does the
// returned adapter.
func NewAdapter(next adapter.Adapter, counter *prometheus.CounterVec) adapter.Adapter {
	ia := instrumentedAdapter{next: next, counter: counter}
	if cond, ok := next.(adapter.Conditional); ok {
		return &conditionalAdapter{instrumentedAdapter: ia, cond: cond}
	}
	return &ia
}

func (a instrumentedAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := a.next.Get(ctx, key)
	switch {
	case errors.Is(err, adapter.ErrNotFound):
		a.observe(OpGet, ResultMiss)
	case err != nil:
		a.observe(OpGet, ResultError)
	default:
		a.observe(OpGet, ResultOK)
	}
	return data, err
}

func (a instrumentedAdapter) Set(ctx context.Context, key string, ttl time.Duration, data []byte) error {
	err := a.next.Set(ctx, key, ttl, data)
	a.observe(OpSet, errResult(err))
	return err
}

func (a instrumentedAdapter) Delete(ctx context.Context, key string) error {
	err := a.next.Delete(ctx, key)
	a.observe(OpDelete, errResult(err))
	return err
}

func (a conditionalAdapter) SetIfAbsent(ctx context.Context, key string, ttl time.Duration, data []byte) (bool, error) {
	ok, err := a.cond.SetIfAbsent(ctx, key, ttl, data)
	a.observe(OpSetIfAbsent, boolResult(ok, err))
	return ok, err
}

func (a conditionalAdapter) DeleteIfEqual(ctx context.Context, key string, data []byte) (bool, error) {
	ok, err := a.cond.DeleteIfEqual(ctx, key, data)
	a.observe(OpDeleteIfEqual, boolResult(ok, err))
	return ok, err
}

func (a instrumentedAdapter) observe(op, result string) {
	a.counter.WithLabelValues(op, result).Inc()
}

func errResult(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

func boolResult(ok bool, err error) string {
	switch {
	case err != nil:
		return ResultError
	case !ok:
		return ResultRejected
	default:
		return ResultOK
	}
}
