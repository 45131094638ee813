// Package bitly is a Go package that provides a client for the bitly API v3.
//
// The client authenticates with the OAuth2 password grant, caches the access
// token for its lifetime and shortens long URLs:
//
//	c, err := bitly.New(bitly.Config{Username: "user", Password: "pass"}, transport.NewHTTP())
//	if err != nil {
//		return err
//	}
//	short, err := c.Shorten(ctx, "example.com")
package bitly

import (
	"errors"
	"fmt"

	"github.com/creasty/defaults"

	"github.com/threecommaio/bitly/transport"
)

// API defaults
const (
	V3          = "v3"
	V4          = "v4"
	DefaultHost = "api-ssl.bitly.com"
)

// ErrNoTransport is returned by New when no transport is supplied
var ErrNoTransport = errors.New("bitly: transport is required")

// Config is the configuration of a Client
type Config struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
	Version  string `yaml:"version" json:"version" default:"v3"`
	Host     string `yaml:"host" json:"host" default:"api-ssl.bitly.com"`
	Scheme   string `yaml:"scheme" json:"scheme" default:"https"`
}

// Client talks to the bitly API. It is safe for concurrent use.
type Client struct {
	cfg       Config
	transport transport.Transport

	// sem is a single slot lock that waiters can abandon via their context
	sem   chan struct{}
	token string
}

// New creates a new client. Empty configuration fields fall back to their defaults.
func New(cfg Config, t transport.Transport) (*Client, error) {
	if t == nil {
		return nil, ErrNoTransport
	}
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("failed to set config defaults: %w", err)
	}

	return &Client{
		cfg:       cfg,
		transport: t,
		sem:       make(chan struct{}, 1),
	}, nil
}

// Config returns a copy of the client configuration
func (c *Client) Config() Config {
	return c.cfg
}

func (c *Client) baseURL() string {
	return c.cfg.Scheme + "://" + c.cfg.Host
}
