package router

import (
	"errors"
	"fmt"
)

// NotFoundError reports a command or query addressed to an unknown
// application.
type NotFoundError struct {
	ApplicationID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("application %s not found", e.ApplicationID)
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}

// TransportError reports that the state substrate could not be reached; the
// outcome of the command is unknown and the caller may retry.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("state store %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err wraps a TransportError.
func IsTransport(err error) bool {
	var transport *TransportError
	return errors.As(err, &transport)
}

// ConflictError reports a command that is not valid in the application's
// current phase, such as supplying evidence after finalization.
type ConflictError struct {
	ApplicationID string
	Phase         string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("application %s does not accept the command in phase %s", e.ApplicationID, e.Phase)
}

// IsConflict reports whether err wraps a ConflictError.
func IsConflict(err error) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict)
}
