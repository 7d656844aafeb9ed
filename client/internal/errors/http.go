package errors

import (
	"encoding/json"
	"fmt"
	"strings"
)

// getHTTPErrorCategory maps HTTP status codes to error categories.
// 4xx client errors (except 408 and 429) are irrecoverable, 5xx are recoverable.
func getHTTPErrorCategory(statusCode int) ErrorCategory {
	switch {
	case statusCode >= 400 && statusCode < 500:
		switch statusCode {
		case 408, 429:
			return Recoverable
		default:
			return Irrecoverable
		}
	case statusCode >= 500 && statusCode < 600:
		return Recoverable
	default:
		// Unexpected status codes - be conservative and retry
		return Recoverable
	}
}

// NewAPIError builds the normalised error for a non-2xx response. The detail
// is read from a {"detail": ...} body; fallback is used when none is present.
func NewAPIError(statusCode int, body []byte, operation, fallback string) *APIError {
	detail := ExtractDetail(body)
	if detail == "" {
		detail = fallback
	}
	if detail == "" {
		detail = GenericMessage
	}
	return &APIError{Status: statusCode, Detail: detail, Operation: operation}
}

// ExtractDetail pulls the detail text out of an error body. A string detail
// is returned verbatim; a validation list yields the first message.
func ExtractDetail(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(envelope.Detail, &s); err == nil {
		return s
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil {
		for _, it := range items {
			if strings.TrimSpace(it.Msg) != "" {
				return it.Msg
			}
		}
	}
	return ""
}

// NewNetworkError creates a classified error for network-level failures.
// Network errors are always recoverable as they may be transient.
func NewNetworkError(operation string, err error) *ClassifiedError {
	return &ClassifiedError{
		Category:   Recoverable,
		StatusCode: 0,
		Underlying: fmt.Errorf("%s network error: %w", operation, err),
	}
}

// NewDecodeError reports a 2xx response whose body could not be decoded.
func NewDecodeError(operation string, statusCode int, err error) *ClassifiedError {
	return &ClassifiedError{
		Category:   Irrecoverable,
		StatusCode: statusCode,
		Underlying: fmt.Errorf("%s: malformed response: %w", operation, err),
	}
}
