package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"wheelcity-backend/internal/server/respond"
)

// InternalKey guards privileged routes with a static internal API key passed
// in the X-Api-Key header. An empty configured key disables all privileged
// routes rather than leaving them open.
func InternalKey(apiKey string) gin.HandlerFunc {
	configured := strings.TrimSpace(apiKey)
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		provided := strings.TrimSpace(c.GetHeader("X-Api-Key"))
		if configured == "" || provided == "" ||
			subtle.ConstantTimeCompare([]byte(configured), []byte(provided)) != 1 {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid internal key", nil)
			return
		}
		c.Next()
	}
}
