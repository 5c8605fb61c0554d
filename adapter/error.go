package adapter

import "errors"

var (
	ErrNotFound     = errors.New("kvmutex: not found")
	ErrFailedLock   = errors.New("kvmutex: failed lock")
	ErrFailedUnlock = errors.New("kvmutex: failed unlock")
)
