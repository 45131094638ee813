// Package config handles parsing and validation of the configuration file
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"time"

	"github.com/creasty/defaults"
	"github.com/imdario/mergo"
	"github.com/kelseyhightower/envconfig"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/threecommaio/bitly/bitly"
)

const (
	defaultPath = "config.yaml"
	// EnvPrefix prefixes every environment variable, e.g. BITLY_USERNAME
	EnvPrefix = "BITLY"
)

var (
	ErrMissingCredentials = errors.New("bitly username and password are required")
	ErrInvalidDuration    = errors.New("invalid duration")
)

// Config is the configuration of the bitly command and server
type Config struct {
	Env      string       `yaml:"env" json:"env" default:"development"`
	LogLevel string       `yaml:"log_level" json:"log_level" default:"info"`
	Bitly    bitly.Config `yaml:"bitly" json:"bitly"`
	HTTP     HTTP         `yaml:"http" json:"http"`
	Server   Server       `yaml:"server" json:"server"`
}

// HTTP configures the outgoing transport
type HTTP struct {
	Timeout string `yaml:"timeout" json:"timeout" default:"10s"`
	// Retries below zero disable retrying
	Retries int `yaml:"retries" json:"retries" default:"3"`
	// RateLimit is the number of requests per second, zero is unlimited
	RateLimit int `yaml:"rate_limit" json:"rate_limit"`
}

// Server configures the HTTP front end
type Server struct {
	ListenAddress    string  `yaml:"listen_address" json:"listen_address" default:":8080"`
	ReadTimeout      string  `yaml:"read_timeout" json:"read_timeout" default:"10s"`
	WriteTimeout     string  `yaml:"write_timeout" json:"write_timeout" default:"10s"`
	Secret           string  `yaml:"secret" json:"secret"`
	SentryDSN        string  `yaml:"sentry_dsn" json:"sentry_dsn"`
	SentrySampleRate float64 `yaml:"sentry_sample_rate" json:"sentry_sample_rate" default:"0.2"`
}

// Env holds the settings read from BITLY_* environment variables
type Env struct {
	Env           string `envconfig:"ENV"`
	LogLevel      string `envconfig:"LOG_LEVEL"`
	Username      string `envconfig:"USERNAME"`
	Password      string `envconfig:"PASSWORD"`
	Host          string `envconfig:"HOST"`
	APIVersion    string `envconfig:"API_VERSION"`
	ListenAddress string `envconfig:"LISTEN_ADDRESS"`
	Secret        string `envconfig:"SECRET"`
	SentryDSN     string `envconfig:"SENTRY_DSN"`
}

// Config converts the environment into a configuration layer
func (e Env) Config() Config {
	return Config{
		Env:      e.Env,
		LogLevel: e.LogLevel,
		Bitly: bitly.Config{
			Username: e.Username,
			Password: e.Password,
			Host:     e.Host,
			Version:  e.APIVersion,
		},
		Server: Server{
			ListenAddress: e.ListenAddress,
			Secret:        e.Secret,
			SentryDSN:     e.SentryDSN,
		},
	}
}

// Parse handles parsing the default location of the config file
func Parse(dest any, f fs.FS) (err error) {
	return ParseFile(dest, f, defaultPath)
}

// ParseFile handles parsing a config file and unmarshaling it into the dest.
// Files ending in .json or .jsonc may contain comments and trailing commas.
func ParseFile(dest any, f fs.FS, filename string) (err error) {
	// Open config file
	file, err := f.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	switch path.Ext(filename) {
	case ".json", ".jsonc":
		data, err := io.ReadAll(file)
		if err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		if err := json.Unmarshal(jsonc.ToJSON(data), dest); err != nil {
			return fmt.Errorf("failed to decode config file: %w", err)
		}
	default:
		// Init new YAML decode
		d := yaml.NewDecoder(file)

		// Start YAML decoding from file
		if err := d.Decode(dest); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	return nil
}

// Load builds the configuration from, in increasing precedence, the config
// file, the environment and the given overrides. Defaults fill whatever is
// still unset. A missing config file is not an error.
func Load(f fs.FS, filename string, overrides ...Config) (*Config, error) {
	var cfg Config
	if filename != "" {
		err := ParseFile(&cfg, f, filename)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	var env Env
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	layers := append([]Config{env.Config()}, overrides...)
	for _, layer := range layers {
		if err := mergo.Merge(&cfg, layer, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge config: %w", err)
		}
	}

	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("failed to set config defaults: %w", err)
	}

	return &cfg, nil
}

// Validate checks the settings needed to talk to bitly
func (c *Config) Validate() error {
	if c.Bitly.Username == "" || c.Bitly.Password == "" {
		return ErrMissingCredentials
	}
	if _, err := c.HTTP.TimeoutDuration(); err != nil {
		return err
	}

	return nil
}

// TimeoutDuration parses the transport timeout
func (h HTTP) TimeoutDuration() (time.Duration, error) {
	d, err := time.ParseDuration(h.Timeout)
	if err != nil {
		return 0, fmt.Errorf("%w: http.timeout %q: %s", ErrInvalidDuration, h.Timeout, err)
	}
	return d, nil
}

// MaxRetries converts Retries for the transport
func (h HTTP) MaxRetries() uint64 {
	if h.Retries < 0 {
		return 0
	}
	return uint64(h.Retries)
}
