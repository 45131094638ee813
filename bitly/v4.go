package bitly

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
)

// V4Client shortens links through the v4 bitlinks API using the bearer token
// obtained by the parent Client.
type V4Client struct {
	baseURL string
	client  *http.Client
}

// ShortenRequest is the body of a v4 shorten call
type ShortenRequest struct {
	LongURL string `json:"long_url"`
}

// ShortenResponse is the bitlink created by a v4 shorten call
type ShortenResponse struct {
	CreatedAt      string        `json:"created_at"`
	ID             string        `json:"id"`
	Link           string        `json:"link"`
	CustomBitlinks []interface{} `json:"custom_bitlinks"`
	LongURL        string        `json:"long_url"`
	Archived       bool          `json:"archived"`
	Tags           []interface{} `json:"tags"`
	Deeplinks      []interface{} `json:"deeplinks"`
	References     struct {
		Group string `json:"group"`
	} `json:"references"`
}

type v4Error struct {
	Message     string `json:"message"`
	Description string `json:"description"`
}

// V4 returns a v4 client authorized with this client's access token.
// An *http.Client stored in ctx under oauth2.HTTPClient is used as the base transport.
func (c *Client) V4(ctx context.Context) *V4Client {
	return &V4Client{
		baseURL: c.baseURL() + "/" + V4,
		client:  oauth2.NewClient(ctx, c.TokenSource(ctx)),
	}
}

// Shorten takes a long URL and returns the created bitlink
func (v *V4Client) Shorten(ctx context.Context, link string) (*ShortenResponse, error) {
	if link == "" {
		return nil, ErrEmptyURL
	}
	jsonBody, err := json.Marshal(ShortenRequest{
		LongURL: link,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal shorten request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/"+actionShorten, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to shorten url: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, v4StatusError(resp.StatusCode, body)
	}

	var sres ShortenResponse
	if err := json.Unmarshal(body, &sres); err != nil {
		return nil, malformed("invalid JSON object", body, err)
	}
	if sres.Link == "" {
		return nil, malformed("missing link", body, nil)
	}

	return &sres, nil
}

func v4StatusError(code int, body []byte) error {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthError{StatusCode: code}
	case http.StatusTooManyRequests:
		return &RateLimitError{StatusCode: code}
	}

	var e v4Error
	_ = json.Unmarshal(body, &e)
	msg := e.Message
	if e.Description != "" && msg != "" {
		msg += ": " + e.Description
	} else if e.Description != "" {
		msg = e.Description
	}

	return &APIError{StatusCode: code, Message: msg}
}
