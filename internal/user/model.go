package user

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/campus-rental-backend/internal/pkg/apperror"
)

var (
	ErrNotFound     = apperror.New(http.StatusNotFound, "NOT_FOUND", "user not found")
	ErrInactiveUser = apperror.New(http.StatusForbidden, "PERMISSION_DENIED", "user is inactive")
)

// User is the read-only view of an account managed by the identity service.
// Sign-up, login and password storage live outside this service.
type User struct {
	ID            string // UUID
	Email         string
	DisplayName   *string
	CreatedAt     time.Time
	IsActive      bool
	IsSystemAdmin bool
}

// Name returns the display name, falling back to the email address.
func (u *User) Name() string {
	if u.DisplayName != nil && *u.DisplayName != "" {
		return *u.DisplayName
	}
	return u.Email
}
