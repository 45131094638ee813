package bitly

import (
	"context"
	"fmt"
	"net/http"

	"github.com/threecommaio/bitly/transport"
)

const actionShorten = "shorten"

type shortenOptions struct {
	encode bool
}

// ShortenOption configures a single Shorten call
type ShortenOption func(*shortenOptions)

// WithEncode controls whether the long URL is form-encoded before it is
// placed in the query string. Encoding is on by default; when disabled the
// caller is responsible for pre-encoding.
func WithEncode(encode bool) ShortenOption {
	return func(o *shortenOptions) {
		o.encode = encode
	}
}

// Shorten takes a long URL and returns a short URL
func (c *Client) Shorten(ctx context.Context, longURL string, opts ...ShortenOption) (string, error) {
	o := shortenOptions{encode: true}
	for _, opt := range opts {
		opt(&o)
	}

	if longURL == "" {
		return "", ErrEmptyURL
	}
	link, err := NormalizeURL(longURL, o.encode)
	if err != nil {
		return "", err
	}

	reqURL, err := c.requestURL(ctx, link, actionShorten)
	if err != nil {
		return "", err
	}

	resp, err := c.transport.Do(ctx, &transport.Request{
		Method: http.MethodGet,
		URL:    reqURL,
	})
	if err != nil {
		return "", fmt.Errorf("failed to shorten url: %w", err)
	}

	p, err := HandleResponse(resp.Body)
	if err != nil {
		return "", err
	}
	success, ok := p.(SuccessPayload)
	if !ok {
		return "", malformed("expected a JSON object", resp.Body, nil)
	}
	if !resp.OK() {
		return "", &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	if success.Data == nil || success.Data.URL == "" {
		return "", malformed("missing data.url", resp.Body, nil)
	}

	return success.Data.URL, nil
}

// requestURL builds the GET target for action, fetching a token if none is cached.
// url is inserted as is.
func (c *Client) requestURL(ctx context.Context, url, action string) (string, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/%s/%s?access_token=%s&format=json&longUrl=%s",
		c.baseURL(), c.cfg.Version, action, token, url), nil
}
