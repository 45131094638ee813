package bitly

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/threecommaio/bitly/transport"
)

const tokenPath = "/oauth/access_token"

// Token returns the cached access token, exchanging the configured
// credentials for one on first use. Concurrent callers wait for a single
// exchange; a caller whose context ends while waiting returns ctx.Err().
func (c *Client) Token(ctx context.Context) (string, error) {
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-c.sem }()

	if c.token != "" {
		return c.token, nil
	}

	token, err := c.fetchToken(ctx)
	if err != nil {
		return "", err
	}
	c.token = token

	return token, nil
}

// ResetToken drops the cached token; the next request authenticates again.
func (c *Client) ResetToken() {
	c.sem <- struct{}{}
	c.token = ""
	<-c.sem
}

func (c *Client) fetchToken(ctx context.Context) (string, error) {
	resp, err := c.transport.Do(ctx, &transport.Request{
		Method:   http.MethodPost,
		URL:      c.baseURL() + tokenPath,
		Username: c.cfg.Username,
		Password: c.cfg.Password,
	})
	if err != nil {
		return "", fmt.Errorf("failed to request access token: %w", err)
	}

	p, err := HandleResponse(resp.Body)
	if err != nil {
		return "", err
	}
	token, ok := p.(RawToken)
	if !ok {
		return "", malformed("expected a raw access token", resp.Body, nil)
	}
	if !resp.OK() {
		return "", &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	if token == "" {
		return "", malformed("empty access token", resp.Body, nil)
	}

	return string(token), nil
}

// TokenSource exposes the client's access token as an oauth2.TokenSource.
// The token never expires; ResetToken followed by a new TokenSource forces a refresh.
func (c *Client) TokenSource(ctx context.Context) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, &clientTokenSource{ctx: ctx, client: c})
}

type clientTokenSource struct {
	ctx    context.Context
	client *Client
}

func (s *clientTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.client.Token(s.ctx)
	if err != nil {
		return nil, err
	}

	return &oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}, nil
}
