// middleware for request ids and body signature verification
package web

import (
	"bytes"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/threecommaio/bitly/core"
	"github.com/threecommaio/bitly/core/hmac"
)

const (
	RequestIDHeader = "X-Request-ID"
	SignatureHeader = "X-Bitly-Signature"
)

// RequestID propagates the caller's request id or assigns a new one
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDHeader, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// SignatureValidation rejects requests whose body is not signed with secret.
// Validation is skipped when no secret is configured.
func SignatureValidation(secret string) gin.HandlerFunc {
	if secret == "" {
		if core.IsProduction() {
			log.Warning("no signing secret configured, skipping signature validation")
		}
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		data, err := c.GetRawData()
		if IsError(c, err) {
			return
		}
		err = hmac.ValidateSignature(hmac.Version, c.GetHeader(SignatureHeader), data, []byte(secret))
		if IsError401(c, err) {
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(data))
		c.Next()
	}
}
