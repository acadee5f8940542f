package auth

import "github.com/gin-gonic/gin"

const (
	userIDKey        = "userID"
	isSystemAdminKey = "isSystemAdmin"
)

// GetUserID returns the authenticated user's ID or empty string.
func GetUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// SetSystemAdmin records whether the caller holds the system admin role.
func SetSystemAdmin(c *gin.Context, admin bool) {
	c.Set(isSystemAdminKey, admin)
}

// IsSystemAdmin reports whether an earlier middleware marked the caller as admin.
func IsSystemAdmin(c *gin.Context) bool {
	return c.GetBool(isSystemAdminKey)
}
