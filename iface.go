// Package kvmutex is an advisory, named mutex whose state lives in a shared
// key-value store, letting processes that share the store coordinate access
// to a resource.
package kvmutex

import (
	"context"
	"time"

	"github.com/ezraisw/kvmutex/adapter/util/mutex"
)

type (
	// OwnerFunc generates the token identifying the holder of a new lock.
	OwnerFunc func() (string, error)

	// Record is the value stored under a lock key.
	Record struct {
		Owner  string `json:"owner" msgpack:"owner"`
		Locked bool   `json:"locked" msgpack:"locked"`
	}

	WaitOptions struct {
		// Give up with a TimeoutError once this much time has passed.
		// If set to zero, waits for as long as the lock is held.
		MaxWait time.Duration

		// Sleep before the first check.
		PreDelay time.Duration

		// Time between checks. If set to zero, defaults to DefaultCheckPeriod.
		CheckPeriod time.Duration
	}

	// Mutex is safe for concurrent use. The setters change the instance in
	// place and apply to operations started after they return; operations
	// already running finish with the configuration they started with.
	// Use separate instances from New for different configurations.
	Mutex interface {
		// Set the prefix prepended to every lock key.
		// Mutexes sharing a store and a prefix share their locks.
		SetPrefix(prefix string) Mutex

		// Set context for the adapter, the guard locker and waits.
		SetContext(context.Context) Mutex

		// Set the generator of owner tokens. Defaults to UUIDOwner.
		// Lock fails with ErrEmptyOwner when it returns an empty token.
		SetOwnerFunc(OwnerFunc) Mutex

		// Serialize the check-then-set sections of Lock and Unlock with guard
		// locks obtained from the locker. Pass nil to disable.
		SetLocker(mutex.Locker) Mutex

		// Use the atomic operations of an adapter.Conditional store for Lock
		// and Unlock instead of check-then-set.
		SetAtomic(atomic bool) Mutex

		// Lock the event and return the owner token.
		// A ttl of zero or less never expires.
		// Returns a *DoubleLockError if the event is already locked.
		Lock(event string, ttl time.Duration) (string, error)

		// Unlock the event.
		//
		// With an empty owner the lock is removed regardless of who holds it.
		// Otherwise it is only removed when held by owner, and false is returned
		// when someone else holds it. Unlocking an unlocked event returns true.
		Unlock(event string, owner string) (bool, error)

		// Same as Unlock with an empty owner.
		ForceUnlock(event string) (bool, error)

		// Block until the event is unlocked.
		// Returns a *TimeoutError once opts.MaxWait passes.
		WaitUntilUnlocked(event string, opts WaitOptions) error

		// Whether the event is currently locked.
		IsLocked(event string) (bool, error)

		// The owner token of the current lock, if any.
		Owner(event string) (string, bool, error)

		// The store key used for the event.
		Key(event string) string
	}
)
