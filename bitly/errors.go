package bitly

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyURL is returned when an empty URL is given to be shortened
var ErrEmptyURL = errors.New("bitly: the URL is empty")

// Status texts with a dedicated error type
const (
	StatusRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	StatusInvalidLogin      = "INVALID_LOGIN"
)

// AuthError indicates the service rejected the configured credentials.
type AuthError struct {
	StatusCode int
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("bitly: invalid login (status %d)", e.StatusCode)
	}
	return "bitly: invalid login"
}

// RateLimitError indicates the service is throttling the client.
// Backing off is left to the caller.
type RateLimitError struct {
	StatusCode int
}

func (e *RateLimitError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("bitly: rate limit exceeded (status %d)", e.StatusCode)
	}
	return "bitly: rate limit exceeded"
}

// APIError is any other failure reported by the service.
type APIError struct {
	StatusCode int
	// Message is the status_txt of the response
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("bitly: API request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("bitly: API request failed with status %d: %s", e.StatusCode, e.Message)
}

// MalformedResponseError indicates a response that could not be interpreted.
type MalformedResponseError struct {
	Reason string
	// Body is the raw response body, truncated
	Body string
	Err  error
}

func (e *MalformedResponseError) Error() string {
	var sb strings.Builder
	sb.WriteString("bitly: malformed response")
	if e.Reason != "" {
		fmt.Fprintf(&sb, ": %s", e.Reason)
	}
	if e.Body != "" {
		fmt.Fprintf(&sb, ", body: %q", e.Body)
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ", err: %v", e.Err)
	}

	return sb.String()
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

const maxErrorBody = 256

func malformed(reason string, body []byte, err error) *MalformedResponseError {
	b := string(body)
	if len(b) > maxErrorBody {
		b = b[:maxErrorBody] + "..."
	}
	return &MalformedResponseError{Reason: reason, Body: b, Err: err}
}
