package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized is matched by errors for 401 responses.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-2xx response from the visit API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Unwrap lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// NetworkError is a request that never produced an HTTP response.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("request failed: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsNetwork reports whether err came from the transport rather than the server.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
