package tms

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthFailed means sign-in was rejected, or the API returned 401
	// again right after a token refresh.
	ErrAuthFailed = errors.New("tms: authentication failed")

	// ErrMalformedSnapshot means the unit/full response decoded into
	// something other than the documented snapshot shape.
	ErrMalformedSnapshot = errors.New("tms: malformed unit snapshot")
)

// APIError is a non-2xx response other than 401.
type APIError struct {
	Status  int
	Snippet string
}

func (e *APIError) Error() string {
	if e.Snippet == "" {
		return fmt.Sprintf("tms: unexpected status %d", e.Status)
	}
	return fmt.Sprintf("tms: unexpected status %d: %s", e.Status, e.Snippet)
}
