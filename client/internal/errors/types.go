// Package errors provides the error taxonomy shared by the SDK layers.
// Categories drive retry policy; APIError carries the server's detail text so
// callers can surface it verbatim.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCategory determines how errors should be handled by retry logic.
type ErrorCategory int

const (
	// Recoverable errors should be retried with exponential backoff.
	// Examples: 500 Internal Server Error, network timeouts, connection failures.
	Recoverable ErrorCategory = iota

	// Irrecoverable errors should fail immediately without retry.
	// Examples: 401 Unauthorized, 403 Forbidden, 400 Bad Request.
	Irrecoverable
)

// String returns a human-readable representation of the error category.
func (c ErrorCategory) String() string {
	switch c {
	case Recoverable:
		return "Recoverable"
	case Irrecoverable:
		return "Irrecoverable"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// GenericMessage is shown when a failed response carries no detail.
const GenericMessage = "Request failed"

// APIError is the closed shape every non-2xx response is normalised into.
type APIError struct {
	Status    int    // HTTP status code
	Detail    string // server-provided detail, or a generic message
	Operation string // SDK operation that issued the request
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Operation == "" {
		return fmt.Sprintf("HTTP %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Operation, e.Status, e.Detail)
}

// Category classifies the status for retry decisions.
func (e *APIError) Category() ErrorCategory { return getHTTPErrorCategory(e.Status) }

// ClassifiedError wraps a non-HTTP failure with categorization metadata.
type ClassifiedError struct {
	Category   ErrorCategory
	StatusCode int    // HTTP status code (0 for non-HTTP errors)
	Body       string // Response body for debugging
	Underlying error  // The original error
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("[%s] HTTP %d: %v", e.Category, e.StatusCode, e.Underlying)
	}
	return fmt.Sprintf("[%s] %v", e.Category, e.Underlying)
}

// Unwrap returns the underlying error for error chain compatibility.
func (e *ClassifiedError) Unwrap() error {
	return e.Underlying
}

// IsIrrecoverable returns true if the error should not be retried.
func IsIrrecoverable(err error) bool {
	var api *APIError
	if stderrors.As(err, &api) {
		return api.Category() == Irrecoverable
	}
	var classified *ClassifiedError
	if stderrors.As(err, &classified) {
		return classified.Category == Irrecoverable
	}
	return false
}

// AsAPIError extracts the APIError from err's chain.
func AsAPIError(err error) (*APIError, bool) {
	var api *APIError
	if stderrors.As(err, &api) {
		return api, true
	}
	return nil, false
}

// HasStatus reports whether err carries an APIError with the given status.
func HasStatus(err error, status int) bool {
	api, ok := AsAPIError(err)
	return ok && api.Status == status
}

// IsUnauthorized reports a 401 response.
func IsUnauthorized(err error) bool { return HasStatus(err, http.StatusUnauthorized) }

// IsForbidden reports a 403 response (insufficient privilege).
func IsForbidden(err error) bool { return HasStatus(err, http.StatusForbidden) }

// UserMessage returns the text to show a user for err: the server detail for
// API errors, a generic message otherwise.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if api, ok := AsAPIError(err); ok && api.Detail != "" {
		return api.Detail
	}
	return GenericMessage
}
