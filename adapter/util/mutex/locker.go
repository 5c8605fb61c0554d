package mutex

import "context"

// Locker hands out short lived guard locks keyed by name.
type Locker interface {
	Obtain(ctx context.Context, key string) (Lock, error)
}

type Lock interface {
	Release(ctx context.Context) error
}
