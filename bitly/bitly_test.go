package bitly

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/threecommaio/bitly/transport"
)

// fakeTransport answers POSTs with the token response and GETs with the shorten response
type fakeTransport struct {
	mu       sync.Mutex
	token    transport.Response
	shorten  transport.Response
	err      error
	requests []transport.Request
}

func newFakeTransport(token, shorten string) *fakeTransport {
	return &fakeTransport{
		token:   transport.Response{StatusCode: http.StatusOK, Body: []byte(token)},
		shorten: transport.Response{StatusCode: http.StatusOK, Body: []byte(shorten)},
	}
}

func (f *fakeTransport) Do(_ context.Context, req *transport.Request) (*transport.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, *req)
	if f.err != nil {
		return nil, f.err
	}
	resp := f.shorten
	if req.Method == http.MethodPost {
		resp = f.token
	}

	return &resp, nil
}

func (f *fakeTransport) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, r := range f.requests {
		if r.Method == method {
			n++
		}
	}
	return n
}

const okShorten = `{"status_code":200,"status_txt":"OK","data":{"url":"http://bit.ly/abc"}}`

func newTestClient(t *testing.T, ft *fakeTransport) *Client {
	t.Helper()
	c, err := New(Config{Username: "user", Password: "pass"}, ft)
	if err != nil {
		t.Fatalf("Failed to create client: %s", err)
	}
	return c
}

func TestNewDefaults(t *testing.T) {
	c := newTestClient(t, newFakeTransport("", ""))
	cfg := c.Config()
	if cfg.Version != V3 || cfg.Host != DefaultHost || cfg.Scheme != "https" {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}

	c, err := New(Config{Version: "v9", Host: "example.org"}, newFakeTransport("", ""))
	if err != nil {
		t.Fatalf("Failed to create client: %s", err)
	}
	if cfg := c.Config(); cfg.Version != "v9" || cfg.Host != "example.org" {
		t.Errorf("Explicit values were overwritten: %+v", cfg)
	}
}

func TestNewRequiresTransport(t *testing.T) {
	if _, err := New(Config{}, nil); !errors.Is(err, ErrNoTransport) {
		t.Fatalf("Expected ErrNoTransport, got %v", err)
	}
}

func TestShorten(t *testing.T) {
	ft := newFakeTransport("tok", okShorten)
	c := newTestClient(t, ft)

	got, err := c.Shorten(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("Unexpected error: %s", err)
	}
	if got != "http://bit.ly/abc" {
		t.Errorf("Expected http://bit.ly/abc, got %s", got)
	}

	if len(ft.requests) != 2 {
		t.Fatalf("Expected 2 requests, got %d", len(ft.requests))
	}
	tokenReq, shortenReq := ft.requests[0], ft.requests[1]
	if tokenReq.Method != http.MethodPost || tokenReq.URL != "https://api-ssl.bitly.com/oauth/access_token" {
		t.Errorf("Unexpected token request: %+v", tokenReq)
	}
	if tokenReq.Username != "user" || tokenReq.Password != "pass" {
		t.Errorf("Token request is missing credentials: %+v", tokenReq)
	}
	want := "https://api-ssl.bitly.com/v3/shorten?access_token=tok&format=json&longUrl=http%3A%2F%2Fexample.com"
	if shortenReq.Method != http.MethodGet || shortenReq.URL != want {
		t.Errorf("Unexpected shorten request: %s %s", shortenReq.Method, shortenReq.URL)
	}
	if shortenReq.Username != "" {
		t.Errorf("Shorten request should not carry credentials: %+v", shortenReq)
	}
}

func TestShortenWithoutEncoding(t *testing.T) {
	ft := newFakeTransport("tok", okShorten)
	c := newTestClient(t, ft)

	if _, err := c.Shorten(context.Background(), "example.com/a", WithEncode(false)); err != nil {
		t.Fatalf("Unexpected error: %s", err)
	}
	if u := ft.requests[1].URL; !strings.HasSuffix(u, "&longUrl=http://example.com/a") {
		t.Errorf("Unexpected request URL: %s", u)
	}
}

func TestShortenEmptyURL(t *testing.T) {
	ft := newFakeTransport("tok", okShorten)
	c := newTestClient(t, ft)

	if _, err := c.Shorten(context.Background(), ""); !errors.Is(err, ErrEmptyURL) {
		t.Fatalf("Expected ErrEmptyURL, got %v", err)
	}
	if len(ft.requests) != 0 {
		t.Errorf("Expected no requests, got %d", len(ft.requests))
	}
}

func TestShortenCachesToken(t *testing.T) {
	ft := newFakeTransport("tok", okShorten)
	c := newTestClient(t, ft)

	for i := 0; i < 2; i++ {
		if _, err := c.Shorten(context.Background(), "example.com"); err != nil {
			t.Fatalf("Unexpected error: %s", err)
		}
	}
	if n := ft.count(http.MethodPost); n != 1 {
		t.Errorf("Expected 1 token request, got %d", n)
	}
	if n := ft.count(http.MethodGet); n != 2 {
		t.Errorf("Expected 2 shorten requests, got %d", n)
	}
}

func TestShortenConcurrentTokenFetch(t *testing.T) {
	ft := newFakeTransport("tok", okShorten)
	c := newTestClient(t, ft)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Shorten(context.Background(), "example.com"); err != nil {
				t.Errorf("Unexpected error: %s", err)
			}
		}()
	}
	wg.Wait()

	if n := ft.count(http.MethodPost); n != 1 {
		t.Errorf("Expected 1 token request, got %d", n)
	}
}

func TestResetToken(t *testing.T) {
	ft := newFakeTransport("tok", okShorten)
	c := newTestClient(t, ft)
	ctx := context.Background()

	if _, err := c.Shorten(ctx, "example.com"); err != nil {
		t.Fatalf("Unexpected error: %s", err)
	}
	c.ResetToken()
	if _, err := c.Shorten(ctx, "example.com"); err != nil {
		t.Fatalf("Unexpected error: %s", err)
	}
	if n := ft.count(http.MethodPost); n != 2 {
		t.Errorf("Expected 2 token requests, got %d", n)
	}
}

func TestShortenErrors(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		shorten string
		check   func(error) bool
	}{
		{
			"rate limit",
			"tok",
			`{"status_code":500,"status_txt":"RATE_LIMIT_EXCEEDED"}`,
			func(err error) bool { var e *RateLimitError; return errors.As(err, &e) },
		},
		{
			"invalid login",
			"tok",
			`{"status_code":403,"status_txt":"INVALID_LOGIN"}`,
			func(err error) bool { var e *AuthError; return errors.As(err, &e) },
		},
		{
			"api error",
			"tok",
			`{"status_code":500,"status_txt":"INVALID_URI"}`,
			func(err error) bool { var e *APIError; return errors.As(err, &e) && e.Message == "INVALID_URI" },
		},
		{
			"missing data.url",
			"tok",
			`{"status_code":200,"status_txt":"OK","data":{}}`,
			func(err error) bool { var e *MalformedResponseError; return errors.As(err, &e) },
		},
		{
			"missing data",
			"tok",
			`{"status_code":200,"status_txt":"OK"}`,
			func(err error) bool { var e *MalformedResponseError; return errors.As(err, &e) },
		},
		{
			"plain text shorten response",
			"tok",
			`Internal Server Error`,
			func(err error) bool { var e *MalformedResponseError; return errors.As(err, &e) },
		},
		{
			"token exchange rejected",
			`{"status_code":401,"status_txt":"INVALID_LOGIN"}`,
			okShorten,
			func(err error) bool { var e *AuthError; return errors.As(err, &e) },
		},
		{
			"token exchange returns an envelope",
			`{"status_code":200,"status_txt":"OK"}`,
			okShorten,
			func(err error) bool { var e *MalformedResponseError; return errors.As(err, &e) },
		},
		{
			"empty token",
			"  ",
			okShorten,
			func(err error) bool { var e *MalformedResponseError; return errors.As(err, &e) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, newFakeTransport(tt.token, tt.shorten))
			_, err := c.Shorten(context.Background(), "example.com")
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !tt.check(err) {
				t.Errorf("Unexpected error: %#v", err)
			}
		})
	}
}

func TestShortenFailedTokenIsNotCached(t *testing.T) {
	ft := newFakeTransport(`{"status_code":500,"status_txt":"RATE_LIMIT_EXCEEDED"}`, okShorten)
	c := newTestClient(t, ft)
	ctx := context.Background()

	var rl *RateLimitError
	if _, err := c.Shorten(ctx, "example.com"); !errors.As(err, &rl) {
		t.Fatalf("Expected RateLimitError, got %v", err)
	}

	ft.token.Body = []byte("tok")
	if _, err := c.Shorten(ctx, "example.com"); err != nil {
		t.Fatalf("Unexpected error: %s", err)
	}
	if n := ft.count(http.MethodPost); n != 2 {
		t.Errorf("Expected 2 token requests, got %d", n)
	}
}

func TestShortenHTTPStatus(t *testing.T) {
	ft := newFakeTransport("tok", okShorten)
	ft.shorten.StatusCode = http.StatusInternalServerError
	c := newTestClient(t, ft)

	var apiErr *APIError
	_, err := c.Shorten(context.Background(), "example.com")
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("Expected APIError with status 500, got %v", err)
	}

	ft = newFakeTransport("<html>bad gateway</html>", okShorten)
	ft.token.StatusCode = http.StatusBadGateway
	c = newTestClient(t, ft)
	if _, err := c.Shorten(context.Background(), "example.com"); !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %v", err)
	}
}

func TestShortenTransportError(t *testing.T) {
	errBoom := errors.New("boom")
	ft := newFakeTransport("tok", okShorten)
	ft.err = errBoom
	c := newTestClient(t, ft)

	if _, err := c.Shorten(context.Background(), "example.com"); !errors.Is(err, errBoom) {
		t.Fatalf("Expected wrapped transport error, got %v", err)
	}
}

func TestRequestURL(t *testing.T) {
	ft := newFakeTransport("tok", okShorten)
	c, err := New(Config{Host: "example.org", Version: "v3", Scheme: "http"}, ft)
	if err != nil {
		t.Fatalf("Failed to create client: %s", err)
	}

	got, err := c.requestURL(context.Background(), "raw url", "expand")
	if err != nil {
		t.Fatalf("Unexpected error: %s", err)
	}
	want := "http://example.org/v3/expand?access_token=tok&format=json&longUrl=raw url"
	if got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
	if _, err := c.requestURL(context.Background(), "x", actionShorten); err != nil {
		t.Fatalf("Unexpected error: %s", err)
	}
	if n := ft.count(http.MethodPost); n != 1 {
		t.Errorf("Expected 1 token request, got %d", n)
	}
}

func TestTokenSource(t *testing.T) {
	ft := newFakeTransport("tok", okShorten)
	c := newTestClient(t, ft)

	ts := c.TokenSource(context.Background())
	for i := 0; i < 2; i++ {
		tok, err := ts.Token()
		if err != nil {
			t.Fatalf("Unexpected error: %s", err)
		}
		if tok.AccessToken != "tok" || tok.TokenType != "Bearer" || !tok.Valid() {
			t.Errorf("Unexpected token: %+v", tok)
		}
	}
	if n := ft.count(http.MethodPost); n != 1 {
		t.Errorf("Expected 1 token request, got %d", n)
	}
}

func TestTokenWaiterHonorsContext(t *testing.T) {
	ft := newFakeTransport("tok", okShorten)
	c := newTestClient(t, ft)

	// simulate an exchange in flight on another goroutine
	c.sem <- struct{}{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Token(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	<-c.sem

	tok, err := c.Token(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %s", err)
	}
	if tok != "tok" {
		t.Errorf("Expected token %q, got %q", "tok", tok)
	}
	if n := ft.count(http.MethodPost); n != 1 {
		t.Errorf("Expected 1 token request, got %d", n)
	}
}
