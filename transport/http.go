package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/dghubble/sling"
	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"

	"github.com/threecommaio/bitly/version"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 3
)

// ErrNilRequest is returned when Do is called without a request
var ErrNilRequest = errors.New("transport: request is nil")

// HTTP is a Transport backed by net/http
type HTTP struct {
	client     *http.Client
	sling      *sling.Sling
	limiter    ratelimit.Limiter
	maxRetries uint64
	userAgent  string
	newBackOff func() backoff.BackOff
}

// Option is used for configuring the HTTP transport
type Option func(*HTTP)

// NewHTTP creates a new HTTP transport
func NewHTTP(opts ...Option) *HTTP {
	h := &HTTP{
		client:     &http.Client{Timeout: defaultTimeout},
		limiter:    ratelimit.NewUnlimited(),
		maxRetries: defaultMaxRetries,
		userAgent:  "bitly-go/" + version.BuildVersionShort(),
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}
	// Loop through each option
	for _, opt := range opts {
		opt(h)
	}
	h.sling = sling.New().Doer(h.client).ResponseDecoder(rawDecoder{})

	return h
}

// WithClient sets the underlying http client
func WithClient(client *http.Client) Option {
	return func(h *HTTP) {
		if client != nil {
			h.client = client
		}
	}
}

// WithTimeout sets the timeout of the underlying http client.
// The client is copied first, so apply it after WithClient.
func WithTimeout(d time.Duration) Option {
	return func(h *HTTP) {
		if d > 0 {
			// copy so a client passed to WithClient is left untouched
			c := *h.client
			c.Timeout = d
			h.client = &c
		}
	}
}

// WithMaxRetries sets how many times a failed request is retried.
// Zero disables retries.
func WithMaxRetries(n uint64) Option {
	return func(h *HTTP) {
		h.maxRetries = n
	}
}

// WithRateLimit throttles outgoing requests to perSecond. Values <= 0 mean unlimited.
func WithRateLimit(perSecond int) Option {
	return func(h *HTTP) {
		if perSecond > 0 {
			h.limiter = ratelimit.New(perSecond)
		} else {
			h.limiter = ratelimit.NewUnlimited()
		}
	}
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(ua string) Option {
	return func(h *HTTP) {
		h.userAgent = ua
	}
}

// Do sends the request, retrying connection failures and gateway errors
func (h *HTTP) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, ErrNilRequest
	}

	var resp *Response
	operation := func() error {
		h.limiter.Take()

		r, err := h.send(ctx, req)
		if err != nil {
			// only connection level failures are worth another attempt
			var uerr *url.Error
			if ctx.Err() != nil || !errors.As(err, &uerr) {
				return backoff.Permanent(err)
			}
			return err
		}
		if retryable(r.StatusCode) {
			resp = r
			return fmt.Errorf("%w: %d", errRetryableStatus, r.StatusCode)
		}
		resp = r

		return nil
	}

	// WithMaxRetries treats zero as unlimited, so stop explicitly
	var bo backoff.BackOff = &backoff.StopBackOff{}
	if h.maxRetries > 0 {
		bo = backoff.WithMaxRetries(h.newBackOff(), h.maxRetries)
	}
	b := backoff.WithContext(bo, ctx)
	notify := func(err error, wait time.Duration) {
		log.WithFields(log.Fields{
			"method": req.Method,
			"url":    redact(req.URL),
			"wait":   wait,
		}).Warnf("retrying request: %s", err)
	}
	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		// out of retries on a gateway error, hand back the last response
		if errors.Is(err, errRetryableStatus) && resp != nil {
			return resp, nil
		}
		return nil, fmt.Errorf("failed to %s %s: %w", req.Method, redact(req.URL), err)
	}

	return resp, nil
}

var errRetryableStatus = errors.New("retryable status")

func retryable(code int) bool {
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// send issues a single attempt. The URL is used verbatim so that a
// pre-encoded query string reaches the server untouched.
func (h *HTTP) send(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if req.Username != "" {
		httpReq.SetBasicAuth(req.Username, req.Password)
	}
	httpReq.Header.Set("User-Agent", h.userAgent)
	httpReq.Header.Set("Accept", "application/json")

	var body []byte
	start := time.Now()
	httpResp, err := h.sling.Do(httpReq, &body, &body)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			uerr.URL = redact(uerr.URL)
		}
		return nil, err
	}

	log.WithFields(log.Fields{
		"method":   req.Method,
		"url":      redact(req.URL),
		"status":   httpResp.StatusCode,
		"size":     humanize.Bytes(uint64(len(body))),
		"duration": time.Since(start),
	}).Debug("bitly request")

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       body,
	}, nil
}

// rawDecoder hands back the body bytes instead of decoding JSON
type rawDecoder struct{}

func (rawDecoder) Decode(resp *http.Response, v interface{}) error {
	dst, ok := v.(*[]byte)
	if !ok {
		return fmt.Errorf("raw decoder: unsupported destination %T", v)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	*dst = data

	return nil
}

// redact hides the access token in URLs that end up in logs and errors
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Get("access_token") == "" {
		return raw
	}
	q.Set("access_token", "REDACTED")
	u.RawQuery = q.Encode()

	return u.String()
}
