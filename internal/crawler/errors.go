package crawler

import (
	"errors"
	"fmt"
)

// ErrNonOKStatus is wrapped by a FetchError of kind FetchStatus.
var ErrNonOKStatus = errors.New("non-200 response status")

// FetchErrorKind classifies why a fetch did not produce a usable page.
type FetchErrorKind string

const (
	// FetchNetwork covers DNS, connection, TLS and timeout failures.
	FetchNetwork FetchErrorKind = "network"

	// FetchStatus means the server answered with a status other than 200.
	FetchStatus FetchErrorKind = "status"

	// FetchBody means the response body could not be read.
	FetchBody FetchErrorKind = "body"
)

// FetchError describes a failed fetch of a single URL.
// It never aborts a crawl; the spider counts it and moves on.
type FetchError struct {
	// URL is the URL that was requested.
	URL string

	// Kind classifies the failure.
	Kind FetchErrorKind

	// StatusCode is set for FetchStatus errors.
	StatusCode int

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Kind == FetchStatus {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsStatusError reports whether err is a FetchError caused by a non-200 status.
func IsStatusError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == FetchStatus
}
