package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   "UNAUTHORIZED",
		"message": message,
	})
}

// AuthRequired is a Gin middleware that validates JWT from Authorization: Bearer <token>
func AuthRequired(verifier *TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			unauthorized(c, "missing Authorization header")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			unauthorized(c, "invalid Authorization header format")
			return
		}

		claims, err := verifier.Verify(strings.TrimSpace(parts[1]))
		if err != nil {
			unauthorized(c, "invalid or expired token")
			return
		}

		// Store user info into Gin context for later handlers.
		c.Set(userIDKey, claims.UserID)

		c.Next()
	}
}
