package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// MetricsAuth protects the metrics endpoint with a Bearer token. An empty
// token leaves the endpoint open.
func MetricsAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.Header("WWW-Authenticate", `Bearer realm="Metrics"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"detail": "Bearer token required",
			})
			return
		}

		providedToken := strings.TrimPrefix(authHeader, "Bearer ")

		// Constant-time comparison to prevent timing attacks
		if subtle.ConstantTimeCompare([]byte(providedToken), []byte(token)) != 1 {
			c.Header("WWW-Authenticate", `Bearer realm="Metrics"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"detail": "Invalid token",
			})
			return
		}

		c.Next()
	}
}
