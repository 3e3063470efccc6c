package scheduler

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInterval is returned for an interval below one minute.
	ErrInvalidInterval = errors.New("scheduler: interval must be at least 1 minute")
	// ErrSweepInProgress is returned by RunNow while a sweep is running.
	ErrSweepInProgress = errors.New("scheduler: sweep already in progress")
	// ErrStopped is returned when a sweep is requested from a stopped scheduler.
	ErrStopped = errors.New("scheduler: not running")
)

// Error represents a failure inside the scheduler.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WrapError wraps an existing error with a message.
func WrapError(err error, message string) error {
	return &Error{Message: message, Err: err}
}
