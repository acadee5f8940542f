package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/campus-rental-backend/internal/auth"
	"github.com/nekogravitycat/campus-rental-backend/internal/pkg/response"
	"github.com/nekogravitycat/campus-rental-backend/internal/user"
)

// ResolveActor loads the authenticated user and records the admin flag for handlers.
// It MUST be used after auth.AuthRequired middleware.
func ResolveActor(userService user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := auth.GetUserID(c)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "UNAUTHORIZED", "message": "unauthorized"})
			return
		}

		u, err := userService.GetActive(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "UNAUTHORIZED", "message": "user not found"})
				return
			}
			response.Error(c, err)
			c.Abort()
			return
		}

		auth.SetSystemAdmin(c, u.IsSystemAdmin)
		c.Next()
	}
}

// RequireSystemAdmin ensures the authenticated user is a system admin.
// It MUST be used after ResolveActor.
func RequireSystemAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !auth.IsSystemAdmin(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "PERMISSION_DENIED",
				"message": "forbidden: system admin access required",
			})
			return
		}

		c.Next()
	}
}
