// Command bitly shortens URLs with the bitly API, from the command line or over HTTP
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alexflint/go-arg"
	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"

	"github.com/threecommaio/bitly/bitly"
	"github.com/threecommaio/bitly/config"
	"github.com/threecommaio/bitly/logging"
	"github.com/threecommaio/bitly/pp"
	"github.com/threecommaio/bitly/transport"
	"github.com/threecommaio/bitly/version"
	"github.com/threecommaio/bitly/web"
)

const service = "bitly"

// ShortenCmd shortens one or more URLs
type ShortenCmd struct {
	URLs     []string `arg:"positional,required" placeholder:"URL" help:"long URLs to shorten"`
	NoEncode bool     `arg:"--no-encode" help:"send the URLs without form-encoding them"`
	JSON     bool     `arg:"--json" help:"print the results as JSON"`
}

// ServeCmd runs the HTTP front end
type ServeCmd struct {
	Listen string `arg:"--listen" help:"address to listen on"`
}

// VersionCmd prints the build version
type VersionCmd struct{}

type args struct {
	Config     string `arg:"-c,--config" default:"config.yaml" help:"path to a YAML or JSONC config file"`
	Username   string `arg:"-u,--username" help:"bitly username"`
	Password   string `arg:"-p,--password" help:"bitly password"`
	Host       string `arg:"--host" help:"bitly API host"`
	APIVersion string `arg:"--api-version" help:"bitly API version"`
	LogLevel   string `arg:"--log-level" help:"log level"`

	Shorten    *ShortenCmd `arg:"subcommand:shorten" help:"shorten URLs"`
	Serve      *ServeCmd   `arg:"subcommand:serve" help:"serve POST /shorten over HTTP"`
	VersionCmd *VersionCmd `arg:"subcommand:version" help:"print the version"`
}

func (args) Description() string {
	return "bitly shortens long URLs with the bitly API\n"
}

func (args) Version() string {
	return version.Release()
}

// overrides turns the flags into the highest precedence configuration layer
func (a args) overrides() config.Config {
	cfg := config.Config{
		LogLevel: a.LogLevel,
		Bitly: bitly.Config{
			Username: a.Username,
			Password: a.Password,
			Host:     a.Host,
			Version:  a.APIVersion,
		},
	}
	if a.Serve != nil {
		cfg.Server.ListenAddress = a.Serve.Listen
	}
	return cfg
}

func main() {
	var a args
	p := arg.MustParse(&a)
	if p.Subcommand() == nil {
		p.Fail("missing subcommand")
	}

	if err := run(a, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(a args, out io.Writer) error {
	if a.VersionCmd != nil {
		fmt.Fprintln(out, pp.JSON(version.Get()))
		return nil
	}

	cfg, err := config.Load(os.DirFS(filepath.Dir(a.Config)), filepath.Base(a.Config), a.overrides())
	if err != nil {
		return err
	}
	if err := logging.Init(service, cfg.Env, cfg.LogLevel); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case a.Shorten != nil:
		return shorten(ctx, client, a.Shorten, out)
	case a.Serve != nil:
		return serve(cfg, client)
	}

	return nil
}

func newClient(cfg *config.Config) (*bitly.Client, error) {
	timeout, err := cfg.HTTP.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	t := transport.NewHTTP(
		transport.WithTimeout(timeout),
		transport.WithMaxRetries(cfg.HTTP.MaxRetries()),
		transport.WithRateLimit(cfg.HTTP.RateLimit),
	)

	return bitly.New(cfg.Bitly, t)
}

// result is a single shortened URL
type result struct {
	LongURL  string `json:"long_url"`
	ShortURL string `json:"short_url,omitempty"`
	Error    string `json:"error,omitempty"`
}

func shorten(ctx context.Context, s web.Shortener, cmd *ShortenCmd, out io.Writer) error {
	results := make([]result, 0, len(cmd.URLs))
	failed := 0
	for _, u := range cmd.URLs {
		short, err := s.Shorten(ctx, u, bitly.WithEncode(!cmd.NoEncode))
		r := result{LongURL: u, ShortURL: short}
		if err != nil {
			log.WithField("url", u).Error(err)
			r.Error = err.Error()
			failed++
		}
		results = append(results, r)
	}

	if cmd.JSON {
		fmt.Fprint(out, pp.JSON(results))
	} else {
		table := tablewriter.NewWriter(out)
		table.SetHeader([]string{"Long URL", "Short URL", "Error"})
		table.SetAutoWrapText(false)
		for _, r := range results {
			table.Append([]string{r.LongURL, r.ShortURL, r.Error})
		}
		table.Render()
	}

	if failed > 0 {
		return fmt.Errorf("failed to shorten %d of %d urls", failed, len(cmd.URLs))
	}
	return nil
}

func serve(cfg *config.Config, client *bitly.Client) error {
	if err := web.InitSentry(web.SentryConfig{
		DSN:        cfg.Server.SentryDSN,
		SampleRate: cfg.Server.SentrySampleRate,
	}); err != nil {
		return err
	}

	s, router, err := web.Setup(web.SrvConfig{
		ListenAddress: cfg.Server.ListenAddress,
		ReadTimeout:   cfg.Server.ReadTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
	})
	if err != nil {
		return err
	}
	web.Register(router, client, cfg.Server.Secret)

	return s.Start()
}
