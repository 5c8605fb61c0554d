package kvmutex

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ezraisw/kvmutex/adapter"
	"github.com/ezraisw/kvmutex/adapter/util/mutex"
	"github.com/ezraisw/kvmutex/codec"
	"github.com/ezraisw/kvmutex/logger"
)

type (
	mutexDeps struct {
		adapter adapter.Adapter
		codec   codec.Codec
		logger  logger.Logger
	}

	mutexConfig struct {
		prefix    string
		ctx       context.Context
		ownerFunc OwnerFunc
		locker    mutex.Locker
		atomic    bool
	}

	defaultMutex struct {
		d   mutexDeps
		cfg atomic.Pointer[mutexConfig]
	}

	// mutexCall carries the configuration snapshot taken when an operation starts.
	mutexCall struct {
		d mutexDeps
		mutexConfig
	}
)

const (
	DefaultCheckPeriod = time.Second

	keySegment   = "mutex"
	guardSegment = "guard"
	keySeparator = ":"
)

func New(adapter adapter.Adapter, codec codec.Codec, logger logger.Logger) Mutex {
	m := &defaultMutex{
		d: mutexDeps{
			adapter: adapter,
			codec:   codec,
			logger:  logger,
		},
	}
	m.cfg.Store(&mutexConfig{
		ctx:       context.Background(),
		ownerFunc: UUIDOwner,
	})
	return m
}

func (m *defaultMutex) SetPrefix(prefix string) Mutex {
	m.update(func(cfg *mutexConfig) { cfg.prefix = prefix })
	return m
}

func (m *defaultMutex) SetContext(ctx context.Context) Mutex {
	m.update(func(cfg *mutexConfig) { cfg.ctx = ctx })
	return m
}

func (m *defaultMutex) SetOwnerFunc(ownerFunc OwnerFunc) Mutex {
	if ownerFunc == nil {
		panic("nil owner func")
	}

	m.update(func(cfg *mutexConfig) { cfg.ownerFunc = ownerFunc })
	return m
}

func (m *defaultMutex) SetLocker(locker mutex.Locker) Mutex {
	m.update(func(cfg *mutexConfig) { cfg.locker = locker })
	return m
}

func (m *defaultMutex) SetAtomic(atomic bool) Mutex {
	m.update(func(cfg *mutexConfig) { cfg.atomic = atomic })
	return m
}

// update replaces the configuration with a modified copy. Operations already
// running keep the snapshot they started with.
func (m *defaultMutex) update(fn func(cfg *mutexConfig)) {
	for {
		old := m.cfg.Load()
		cfg := *old
		fn(&cfg)
		if m.cfg.CompareAndSwap(old, &cfg) {
			return
		}
	}
}

func (m *defaultMutex) call() mutexCall {
	return mutexCall{d: m.d, mutexConfig: *m.cfg.Load()}
}

func (m *defaultMutex) Key(event string) string {
	return m.call().Key(event)
}

func (m *defaultMutex) Lock(event string, ttl time.Duration) (string, error) {
	return m.call().Lock(event, ttl)
}

func (m *defaultMutex) ForceUnlock(event string) (bool, error) {
	return m.call().Unlock(event, "")
}

func (m *defaultMutex) Unlock(event string, owner string) (bool, error) {
	return m.call().Unlock(event, owner)
}

func (m *defaultMutex) WaitUntilUnlocked(event string, opts WaitOptions) error {
	return m.call().WaitUntilUnlocked(event, opts)
}

func (m *defaultMutex) IsLocked(event string) (bool, error) {
	return m.call().IsLocked(event)
}

func (m *defaultMutex) Owner(event string) (string, bool, error) {
	return m.call().Owner(event)
}

func (m mutexCall) Key(event string) string {
	return joinKey(m.prefix, keySegment, event)
}

func (m mutexCall) Lock(event string, ttl time.Duration) (string, error) {
	if event == "" {
		return "", ErrEmptyEvent
	}
	if ttl < 0 {
		ttl = 0
	}

	key := m.Key(event)

	if m.atomic {
		return m.lockAtomic(event, key, ttl)
	}

	release, err := m.guard(key)
	if err != nil {
		return "", err
	}
	defer release()

	locked, err := m.IsLocked(event)
	if err != nil {
		return "", err
	}
	if locked {
		m.d.logger.Debug("already locked", key)
		return "", newDoubleLockError(event)
	}

	owner, data, err := m.newRecord()
	if err != nil {
		return "", err
	}

	if err := m.d.adapter.Set(m.ctx, key, ttl, data); err != nil {
		m.d.logger.Error("error while storing lock", key, err)
		return "", err
	}

	m.d.logger.Debug("lock acquired", key, "owner", owner)
	return owner, nil
}

func (m mutexCall) lockAtomic(event string, key string, ttl time.Duration) (string, error) {
	cond, ok := m.d.adapter.(adapter.Conditional)
	if !ok {
		return "", ErrAtomicUnsupported
	}

	owner, data, err := m.newRecord()
	if err != nil {
		return "", err
	}

	stored, err := cond.SetIfAbsent(m.ctx, key, ttl, data)
	if err != nil {
		m.d.logger.Error("error while storing lock", key, err)
		return "", err
	}
	if !stored {
		m.d.logger.Debug("already locked", key)
		return "", newDoubleLockError(event)
	}

	m.d.logger.Debug("lock acquired", key, "owner", owner)
	return owner, nil
}

func (m mutexCall) Unlock(event string, owner string) (bool, error) {
	if event == "" {
		return false, ErrEmptyEvent
	}

	key := m.Key(event)

	// No owner means no ownership check.
	if owner == "" {
		return m.delete(key)
	}

	if m.atomic {
		return m.unlockAtomic(key, owner)
	}

	release, err := m.guard(key)
	if err != nil {
		return false, err
	}
	defer release()

	record, _, found, err := m.getRecord(key)
	if err != nil {
		return false, err
	}
	if !found {
		// Already unlocked.
		return true, nil
	}
	if record.Owner != owner {
		m.d.logger.Debug("not the owner", key, "owner", record.Owner, "given", owner)
		return false, nil
	}

	return m.delete(key)
}

func (m mutexCall) unlockAtomic(key string, owner string) (bool, error) {
	cond, ok := m.d.adapter.(adapter.Conditional)
	if !ok {
		return false, ErrAtomicUnsupported
	}

	record, data, found, err := m.getRecord(key)
	if err != nil {
		return false, err
	}
	if !found {
		return true, nil
	}
	if record.Owner != owner {
		m.d.logger.Debug("not the owner", key, "owner", record.Owner, "given", owner)
		return false, nil
	}

	deleted, err := cond.DeleteIfEqual(m.ctx, key, data)
	if err != nil {
		m.d.logger.Error("error while deleting lock", key, err)
		return false, err
	}
	if deleted {
		m.d.logger.Debug("lock released", key)
		return true, nil
	}

	// The record changed after it was read. Gone counts as unlocked,
	// anything else now belongs to someone else.
	_, _, found, err = m.getRecord(key)
	if err != nil {
		return false, err
	}
	return !found, nil
}

func (m mutexCall) WaitUntilUnlocked(event string, opts WaitOptions) error {
	if event == "" {
		return ErrEmptyEvent
	}

	checkPeriod := opts.CheckPeriod
	if checkPeriod <= 0 {
		checkPeriod = DefaultCheckPeriod
	}

	if opts.PreDelay > 0 {
		if err := m.sleep(opts.PreDelay); err != nil {
			return err
		}
	}

	// Without a deadline this only returns once the lock is gone.
	var deadline time.Time
	if opts.MaxWait > 0 {
		deadline = time.Now().Add(opts.MaxWait)
	}

	for {
		locked, err := m.IsLocked(event)
		if err != nil {
			return err
		}
		if !locked {
			return nil
		}

		m.d.logger.Debug("waiting for unlock", m.Key(event))

		if err := m.sleep(checkPeriod); err != nil {
			return err
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return newTimeoutError(event, opts.MaxWait)
		}
	}
}

func (m mutexCall) IsLocked(event string) (bool, error) {
	if event == "" {
		return false, ErrEmptyEvent
	}

	record, _, found, err := m.getRecord(m.Key(event))
	if err != nil || !found {
		return false, err
	}
	return record.Locked, nil
}

func (m mutexCall) Owner(event string) (string, bool, error) {
	if event == "" {
		return "", false, ErrEmptyEvent
	}

	record, _, found, err := m.getRecord(m.Key(event))
	if err != nil || !found || record.Owner == "" {
		return "", false, err
	}
	return record.Owner, true, nil
}

func (m mutexCall) newRecord() (string, []byte, error) {
	owner, err := m.ownerFunc()
	if err != nil {
		return "", nil, err
	}
	if owner == "" {
		// An empty token would read as "no owner" and make Unlock a force unlock.
		return "", nil, ErrEmptyOwner
	}

	data, err := m.d.codec.Marshal(&Record{Owner: owner, Locked: true})
	if err != nil {
		return "", nil, err
	}
	return owner, data, nil
}

// getRecord also returns the raw bytes so they can be used for compare-and-delete.
func (m mutexCall) getRecord(key string) (Record, []byte, bool, error) {
	var record Record

	data, err := m.d.adapter.Get(m.ctx, key)
	if err != nil {
		if errors.Is(err, adapter.ErrNotFound) {
			return record, nil, false, nil
		}

		m.d.logger.Error("error while getting lock", key, err)
		return record, nil, false, err
	}

	if err := m.d.codec.Unmarshal(data, &record); err != nil {
		return record, nil, false, fmt.Errorf("kvmutex: malformed record at %q: %w", key, err)
	}
	return record, data, true, nil
}

func (m mutexCall) delete(key string) (bool, error) {
	if err := m.d.adapter.Delete(m.ctx, key); err != nil {
		m.d.logger.Error("error while deleting lock", key, err)
		return false, err
	}

	m.d.logger.Debug("lock released", key)
	return true, nil
}

// guard obtains the guard lock for key when a locker is set.
// The returned func releases it and is never nil.
func (m mutexCall) guard(key string) (func(), error) {
	if m.locker == nil {
		return func() {}, nil
	}

	guardKey := joinKey(key, guardSegment)
	lock, err := m.locker.Obtain(m.ctx, guardKey)
	if err != nil {
		m.d.logger.Error("error while obtaining guard", guardKey, err)
		return nil, err
	}

	return func() {
		if err := lock.Release(m.ctx); err != nil {
			m.d.logger.Error("error while releasing guard", guardKey, err)
		}
	}, nil
}

func (m mutexCall) sleep(d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-m.ctx.Done():
		return m.ctx.Err()
	}
}

func joinKey(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, keySeparator)
}
