package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers calls that ended, never existed, or are not
	// visible to the requesting identity. Coordinators treat it as a
	// normal outcome, not a fault.
	ErrNotFound = errors.New("call not found")

	// ErrForbidden means the authenticated identity is not allowed to
	// perform the operation on this call.
	ErrForbidden = errors.New("not a participant of this call")

	// ErrConflict means a state precondition failed inside the accept
	// transaction, e.g. the call was already answered.
	ErrConflict = errors.New("call already handled")

	// ErrUnauthenticated means the request carried no resolvable identity.
	ErrUnauthenticated = errors.New("unauthenticated")
)

type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}
