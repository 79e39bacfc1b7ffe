package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownCentre is returned when no bearer token is configured for a centre.
	ErrUnknownCentre = errors.New("no API token configured for centre")

	// ErrUnauthorized is returned when the backend rejects the centre token.
	ErrUnauthorized = errors.New("invoice backend rejected the API token")

	// ErrQueryFailed is returned when the backend answers with GraphQL errors.
	ErrQueryFailed = errors.New("invoice query failed")
)

// FetchError wraps a failure to fetch one centre's invoices.
type FetchError struct {
	// Op is the operation that failed (e.g., "FetchInvoices").
	Op string

	// Centre is the centre whose fetch failed.
	Centre string

	// StatusCode is the HTTP status, when the backend answered.
	StatusCode int

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("backend: %s failed for %s (status %d): %v", e.Op, e.Centre, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("backend: %s failed for %s: %v", e.Op, e.Centre, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *FetchError) Unwrap() error {
	return e.Err
}
