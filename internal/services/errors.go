package services

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthRequired is returned when an operation needs a signed-in user.
	ErrAuthRequired = errors.New("authentication required")
	// ErrSelfRequest is returned when a user asks to adopt their own listing.
	ErrSelfRequest = errors.New("cannot request adoption of own listing")
	// ErrListingNotFound is returned when a listing key resolves to nothing.
	ErrListingNotFound = errors.New("listing not found")
)

// ValidationError is a local input failure detected before any remote call.
// Message is the single combined text shown to the user.
type ValidationError struct {
	Message string
	Missing []string
}

func (e *ValidationError) Error() string { return e.Message }

// RemoteError wraps a failure reported by the data store or auth provider.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *RemoteError) Unwrap() error { return e.Err }

func asValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
