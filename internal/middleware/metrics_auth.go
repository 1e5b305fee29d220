package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// MetricsAuthMiddleware protects the metrics endpoint with a static Bearer token.
// An empty token leaves the endpoint open.
func MetricsAuthMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		provided, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortMetrics(c, "bearer token required")
			return
		}

		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			abortMetrics(c, "invalid token")
			return
		}

		c.Next()
	}
}

func abortMetrics(c *gin.Context, description string) {
	c.Header("WWW-Authenticate", `Bearer realm="metrics"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":             "unauthorized",
		"error_description": description,
	})
}
