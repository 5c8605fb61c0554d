package mutex

import (
	"context"
	"errors"
)

type MutexFactory interface {
	Make(key string) Mutex
}

type Mutex interface {
	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
}

// ErrNotHeld is returned when unlocking a Mutex that is not locked.
var ErrNotHeld = errors.New("kvmutex: mutex not held")
