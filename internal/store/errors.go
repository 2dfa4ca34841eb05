package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a visit id is not in the local list.
var ErrNotFound = errors.New("visit not found")

// ValidationError is a client-side check that failed before any request
// was sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// FetchError wraps a failed Load. The previous list is still in place.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("loading visits: %v", e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a client-side validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
