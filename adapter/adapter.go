package adapter

import (
	"context"
	"time"
)

// Adapter is the key-value store a mutex keeps its records in.
type Adapter interface {
	// Get returns ErrNotFound when the key is missing or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores data under key. A ttl of zero or less never expires.
	Set(ctx context.Context, key string, ttl time.Duration, data []byte) error

	// Delete removes the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Conditional is implemented by adapters able to perform atomic
// compare-and-set style writes.
type Conditional interface {
	// SetIfAbsent stores data only if the key does not exist.
	// It reports whether the value was stored.
	SetIfAbsent(ctx context.Context, key string, ttl time.Duration, data []byte) (bool, error)

	// DeleteIfEqual removes the key only if its current value equals data.
	// It reports whether the key was removed.
	DeleteIfEqual(ctx context.Context, key string, data []byte) (bool, error)
}
