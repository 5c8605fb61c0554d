package kvmutex

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrDoubleLock        = errors.New("kvmutex: double lock")
	ErrTimeout           = errors.New("kvmutex: timeout")
	ErrEmptyEvent        = errors.New("kvmutex: empty event")
	ErrEmptyOwner        = errors.New("kvmutex: owner func returned an empty token")
	ErrAtomicUnsupported = errors.New("kvmutex: adapter does not support atomic operations")
)

type (
	baseError struct {
		category    string
		message     string
		previousErr error
	}

	// DoubleLockError is returned by Lock when the event is already locked.
	DoubleLockError struct {
		baseError
		Event string
	}

	// TimeoutError is returned by WaitUntilUnlocked when the event stays
	// locked past the maximum wait.
	TimeoutError struct {
		baseError
		Event   string
		MaxWait time.Duration
	}
)

func newDoubleLockError(event string) *DoubleLockError {
	return &DoubleLockError{
		baseError: baseError{
			category:    "lock",
			message:     fmt.Sprintf("event %q is already locked", event),
			previousErr: ErrDoubleLock,
		},
		Event: event,
	}
}

func newTimeoutError(event string, maxWait time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			category:    "wait",
			message:     fmt.Sprintf("event %q still locked after %s", event, maxWait),
			previousErr: ErrTimeout,
		},
		Event:   event,
		MaxWait: maxWait,
	}
}

func (e baseError) Error() string {
	return fmt.Sprintf("%s (%s)", e.message, e.previousErr.Error())
}

func (e baseError) Category() string {
	return e.category
}

func (e baseError) Unwrap() error {
	return e.previousErr
}
