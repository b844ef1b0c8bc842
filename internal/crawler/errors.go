package crawler

import (
	"errors"
	"fmt"
)

// ErrInvalidURL is the single recoverable failure kind of a fetch. Every
// *FetchError matches it with errors.Is.
var ErrInvalidURL = errors.New("invalid url")

// ErrInvalidSeed is returned by Engine.Run when the seed is not an absolute
// http(s) URL.
var ErrInvalidSeed = errors.New("seed must be an absolute http or https URL")

// FailureReason says which part of the fetch policy rejected a URL.
type FailureReason string

// Failure reasons reported by HTTPFetcher.
const (
	// ReasonTransport covers malformed URLs, request construction and
	// connection errors.
	ReasonTransport FailureReason = "transport"
	// ReasonTimeout means the per-request deadline expired.
	ReasonTimeout FailureReason = "timeout"
	// ReasonStatus means the response status was not accepted.
	ReasonStatus FailureReason = "status"
	// ReasonContentType means the media type was not text/html or text/plain.
	ReasonContentType FailureReason = "content-type"
	// ReasonDecode means the body could not be decompressed, was too large,
	// or was not valid text in its declared charset.
	ReasonDecode FailureReason = "decode"
)

// FetchError describes why a URL was rejected.
type FetchError struct {
	URL    string
	Reason FailureReason
	Err    error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("invalid url %s (%s): %v", e.URL, e.Reason, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrInvalidURL.
func (e *FetchError) Is(target error) bool {
	return target == ErrInvalidURL
}

func invalidURL(rawURL string, reason FailureReason, err error) *FetchError {
	return &FetchError{URL: rawURL, Reason: reason, Err: err}
}
