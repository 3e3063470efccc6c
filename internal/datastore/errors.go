package datastore

import (
	"errors"
	"fmt"
)

// ErrAlreadyTracked is returned by AddTracked when the owner already tracks the URL.
// Nothing is written in that case.
var ErrAlreadyTracked = errors.New("resource already tracked")

// StoreError wraps a persistence failure with the operation that hit it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
