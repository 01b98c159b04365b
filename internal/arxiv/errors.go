package arxiv

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the arXiv client.
var (
	// ErrNotFound indicates no paper matched the requested identifier.
	ErrNotFound = errors.New("not found on arXiv")

	// ErrRateLimited indicates arXiv asked us to slow down.
	ErrRateLimited = errors.New("arXiv rate limit exceeded")

	// ErrAPIError indicates a general API error.
	ErrAPIError = errors.New("arXiv API error")

	// ErrNetworkError indicates a network connectivity issue.
	ErrNetworkError = errors.New("network error communicating with arXiv")

	// ErrInvalidResponse indicates a response that is not a valid Atom feed.
	ErrInvalidResponse = errors.New("invalid response from arXiv")
)

// APIError represents an error reported by the arXiv export API, either as
// an HTTP status or as an error entry inside the Atom feed.
type APIError struct {
	StatusCode int
	Message    string
	Query      string // The search query or id_list, for context
}

func (e *APIError) Error() string {
	if e.Query != "" {
		return fmt.Sprintf("arXiv API error (status %d): %s (query: %s)", e.StatusCode, e.Message, e.Query)
	}
	return fmt.Sprintf("arXiv API error (status %d): %s", e.StatusCode, e.Message)
}

// Unwrap makes errors.Is(err, ErrAPIError) true for every APIError.
func (e *APIError) Unwrap() error {
	return ErrAPIError
}

// IsNotFound returns true if the error indicates a paper was not found.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode == http.StatusServiceUnavailable
	}
	return false
}

// IsNetworkError returns true if arXiv could not be reached.
func IsNetworkError(err error) bool {
	return errors.Is(err, ErrNetworkError)
}
