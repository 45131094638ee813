// Package transport provides the HTTP collaborator used by the bitly client
package transport

import (
	"context"
	"net/http"
)

// Transport executes a single request and returns the buffered response.
// Implementations must respect the context.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Request is the minimal request the bitly client issues
type Request struct {
	Method string
	URL    string
	// Username and Password enable HTTP Basic authentication when Username is set
	Username string
	Password string
}

// Response is the fully-buffered result of a request
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the status code is in the 2xx range
func (r *Response) OK() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}
