package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SharedSecret returns a middleware that rejects requests whose header does
// not carry the configured shared secret. Nothing is processed on a mismatch.
func SharedSecret(header, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(header)
		if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "unauthorized",
				},
			})
			return
		}

		c.Next()
	}
}
