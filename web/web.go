// Package web provides the HTTP front end for the shortener
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	sentry "github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	ginlogrus "github.com/toorop/gin-logrus"

	"github.com/threecommaio/bitly/core"
	"github.com/threecommaio/bitly/version"
)

var ErrSampleRate = errors.New("sentry sample rate must be between 0 and 1.0")

// Srv is the web server
type Srv struct {
	cfg    SrvConfig
	quit   chan os.Signal
	ctx    context.Context
	server *http.Server
}

// Option is used for configuring features of the webserver
type Option func(*Srv)

// SrvConfig is the configuration for the web server
type SrvConfig struct {
	ListenAddress string
	ReadTimeout   string
	WriteTimeout  string
}

// SentryConfig is the configuration for error reporting
type SentryConfig struct {
	DSN        string
	SampleRate float64
	Debug      bool
}

// InitSentry initializes sentry, it is a no-op without a DSN
func InitSentry(cfg SentryConfig) error {
	if cfg.SampleRate < 0 || cfg.SampleRate > 1 {
		return fmt.Errorf("%w: %v", ErrSampleRate, cfg.SampleRate)
	}
	if cfg.DSN == "" {
		log.Warn("sentry DSN is empty, error reporting is disabled")
		return nil
	}
	// To initialize Sentry's handler, you need to initialize Sentry itself beforehand
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Release:          version.Release(),
		Environment:      core.Environment(),
		Debug:            cfg.Debug,
		TracesSampleRate: cfg.SampleRate,
	}); err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}

	return nil
}

// Setup  sets up the webserver
func Setup(cfg SrvConfig) (Srv, *gin.Engine, error) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	if core.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup the gin router
	router := gin.New()
	router.Use(sentrygin.New(sentrygin.Options{
		Repanic: true,
	}))
	router.Use(RequestID(), ginlogrus.Logger(log.StandardLogger()), gin.Recovery())
	// attach healthcheck and metrics
	router.GET("/healthz", Healthz())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	readTimeout, err := time.ParseDuration(cfg.ReadTimeout)
	if err != nil {
		return Srv{}, nil, fmt.Errorf("failed to parse read timeout: %w", err)
	}
	writeTimeout, err := time.ParseDuration(cfg.WriteTimeout)
	if err != nil {
		return Srv{}, nil, fmt.Errorf("failed to parse write timeout: %w", err)
	}

	server := &http.Server{
		Addr:           cfg.ListenAddress,
		Handler:        router,
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		MaxHeaderBytes: 24 * humanize.KiByte,
	}

	s := New(context.Background(), cfg, server, WithQuit(quit))

	return *s, router, nil
}

// New creates a new web server
func New(ctx context.Context, cfg SrvConfig, server *http.Server, opts ...Option) *Srv {
	srv := &Srv{
		ctx:    ctx,
		cfg:    cfg,
		server: server,
	}
	// Loop through each option
	for _, opt := range opts {
		opt(srv)
	}

	return srv
}

// WithQuit sets the quit channel to receive a signal to stop the server
func WithQuit(quit chan os.Signal) Option {
	return func(s *Srv) {
		s.quit = quit
	}
}

// Start starts the web server and blocks until a quit signal arrives
func (s *Srv) Start() error {
	// Flush buffered events before the program terminates
	// Set the timeout to the maximum duration the program can afford to wait
	defer sentry.Flush(5 * time.Second)

	errc := make(chan error, 1)
	// Initializing the server in a goroutine so that
	// it won't block the graceful shutdown handling below
	go func() {
		log.Infof("listening on %s", s.cfg.ListenAddress)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("listen: %w", err)
	case <-s.quit:
	case <-s.ctx.Done():
	}

	return s.Stop()
}

// Stop stops the web server
func (s *Srv) Stop() error {
	log.Println("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to gracefully shutdown server: %w", err)
	}

	log.Info("Server exiting")

	return nil
}

// IsError checks if err and aborts with json 500 error
func IsError(c *gin.Context, err error) bool {
	return abortWith(c, http.StatusInternalServerError, err)
}

// IsError401 checks if err and aborts with json 401 error
func IsError401(c *gin.Context, err error) bool {
	return abortWith(c, http.StatusUnauthorized, err)
}

func abortWith(c *gin.Context, status int, err error) bool {
	if err != nil {
		if status >= http.StatusInternalServerError {
			log.Error(err)
			if hub := sentrygin.GetHubFromContext(c); hub != nil {
				hub.CaptureException(err)
			}
		} else {
			log.Warn(err)
		}
		c.AbortWithStatusJSON(status,
			gin.H{"status": false, "message": err.Error()})

		return true // signal that there was an error and the caller should return
	}

	return false // no error, can continue
}
