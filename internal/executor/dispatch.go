package executor

import (
	"context"
	"errors"

	"github.com/fyrsmithlabs/uipilot/internal/task"
)

// Result carries what a backend produced for one step.
type Result struct {
	// Message describes what happened, in backend terms.
	Message string

	// Image holds optional screenshot bytes (PNG).
	Image []byte
}

// Dispatcher executes a single step against a device or simulator.
//
// A nil error means the step succeeded. Failures that are worth
// retrying must be marked with Transient; everything else is treated as
// permanent.
type Dispatcher interface {
	Dispatch(ctx context.Context, step task.Step) (*Result, error)
}

// transientError marks a dispatch failure as retryable.
type transientError struct {
	err error
}

func (e *transientError) Error() string {
	return e.err.Error()
}

func (e *transientError) Unwrap() error {
	return e.err
}

// Transient marks err as retryable. Returns nil for a nil err.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err is marked retryable.
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}
