package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/threecommaio/bitly/version"
)

// Healthz returns the health of the service.
func Healthz() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": version.BuildVersionShort(),
		})
	}
}
