package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/schema"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/threecommaio/bitly/bitly"
)

// Shortener is the subset of *bitly.Client served over HTTP
type Shortener interface {
	Shorten(ctx context.Context, longURL string, opts ...bitly.ShortenOption) (string, error)
}

// ShortenForm is the form or query payload of POST /shorten
type ShortenForm struct {
	URL    string `schema:"url"`
	Encode *bool  `schema:"encode"`
}

// shorten results
const (
	resultOK          = "ok"
	resultInvalid     = "invalid"
	resultRateLimited = "rate_limited"
	resultUpstream    = "upstream_error"
	resultError       = "error"
)

var shortenTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "bitly",
	Name:      "shorten_requests_total",
	Help:      "Shorten requests served, by result.",
}, []string{"result"})

func init() {
	prometheus.MustRegister(shortenTotal)
}

// Register mounts the shortener routes. Request bodies must be signed with
// secret when it is not empty.
func Register(router gin.IRouter, s Shortener, secret string) {
	router.POST("/shorten", SignatureValidation(secret), ShortenHandler(s))
}

// ShortenHandler shortens the url field of the form or query string
func ShortenHandler(s Shortener) gin.HandlerFunc {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)

	return func(c *gin.Context) {
		if err := c.Request.ParseForm(); err != nil {
			shortenTotal.WithLabelValues(resultInvalid).Inc()
			abortWith(c, http.StatusBadRequest, err)
			return
		}
		var form ShortenForm
		if err := decoder.Decode(&form, c.Request.Form); err != nil {
			shortenTotal.WithLabelValues(resultInvalid).Inc()
			abortWith(c, http.StatusBadRequest, err)
			return
		}

		var opts []bitly.ShortenOption
		if form.Encode != nil {
			opts = append(opts, bitly.WithEncode(*form.Encode))
		}

		short, err := s.Shorten(c.Request.Context(), form.URL, opts...)
		if err != nil {
			status, result := classify(err)
			shortenTotal.WithLabelValues(result).Inc()
			abortWith(c, status, err)
			return
		}

		shortenTotal.WithLabelValues(resultOK).Inc()
		c.JSON(http.StatusOK, gin.H{"status": true, "url": short})
	}
}

// classify maps shortener errors to a response status and metric label
func classify(err error) (int, string) {
	var (
		rateLimited *bitly.RateLimitError
		authErr     *bitly.AuthError
		apiErr      *bitly.APIError
		malformed   *bitly.MalformedResponseError
	)
	switch {
	case errors.Is(err, bitly.ErrEmptyURL):
		return http.StatusBadRequest, resultInvalid
	case errors.As(err, &rateLimited):
		return http.StatusTooManyRequests, resultRateLimited
	case errors.As(err, &authErr), errors.As(err, &apiErr), errors.As(err, &malformed):
		return http.StatusBadGateway, resultUpstream
	default:
		return http.StatusInternalServerError, resultError
	}
}
