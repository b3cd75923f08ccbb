package invoker

import (
	"errors"
	"fmt"
)

var (
	// ErrHistoryExhausted is returned in replay-only mode when a call-site
	// has no journal record – the persisted history does not cover it.
	ErrHistoryExhausted = errors.New("invoker: activity history exhausted")

	// ErrNonDeterministic indicates that a replayed call-site does not match
	// the journaled action or input.
	ErrNonDeterministic = errors.New("invoker: non-deterministic replay")
)

// Error describes a failed activity invocation after the retry policy has
// been exhausted or a permanent failure occurred.
type Error struct {
	Action    string
	Attempts  int
	Permanent bool
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("activity %s failed after %d attempt(s): %v", e.Action, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as non-retryable (malformed response, client error).
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked non-retryable.
func IsPermanent(err error) bool {
	var marker *permanentError
	if errors.As(err, &marker) {
		return true
	}
	var invocation *Error
	if errors.As(err, &invocation) {
		return invocation.Permanent
	}
	return false
}
