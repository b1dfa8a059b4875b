package inference

import (
	"errors"
	"fmt"
)

var (
	ErrNotInitialized    = errors.New("engine not initialized")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNoFreeSlot        = errors.New("no free model slot")
	ErrModelNotFound     = errors.New("model not found")
	ErrLoadFailure       = errors.New("model load failed")
	ErrCapacityExceeded  = errors.New("token capacity exceeded")
	ErrAllocationFailure = errors.New("allocation failure")
)

type argumentError struct {
	msg string
}

func (e argumentError) Error() string {
	return e.msg
}

func (e argumentError) Unwrap() error {
	return ErrInvalidArgument
}

func invalidArgument(format string, args ...any) error {
	return argumentError{msg: fmt.Sprintf(format, args...)}
}

func loadFailure(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrLoadFailure, what, err)
}
