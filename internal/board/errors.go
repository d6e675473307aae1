package board

import (
	"errors"
	"fmt"
)

// Remote failure classes. ErrAuth is fatal for the whole run; ErrNotFound is
// recovered by skipping the index.
var (
	ErrAuth     = errors.New("authentication rejected")
	ErrNotFound = errors.New("article not found")
)

// TransientError marks a failure worth retrying: timeouts, disconnects,
// throttling responses.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure in %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a retryable failure.
func Transient(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var te *TransientError

	return errors.As(err, &te)
}
