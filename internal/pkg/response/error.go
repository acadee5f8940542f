package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/campus-rental-backend/internal/pkg/apperror"
)

// ErrorResponse defines the base JSON structure for error responses.
// AppError details are merged into the same object.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Error sends a JSON error response.
// It checks if the error is an AppError to determine the status code.
// If it's not an AppError, it logs the cause and answers 500 Internal Server Error.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		body := gin.H{
			"error":   appErr.Type,
			"message": appErr.Message,
		}
		for k, v := range appErr.Details {
			body[k] = v
		}
		c.JSON(appErr.Code, body)
		return
	}

	slog.ErrorContext(c.Request.Context(), "unhandled error",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"error", err,
	)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "INTERNAL_ERROR", Message: "internal server error"})
}

// BadRequest answers 400 for malformed input (binding or parsing failures).
func BadRequest(c *gin.Context, message string, err error) {
	body := gin.H{"error": "INVALID_INPUT", "message": message}
	if err != nil {
		body["details"] = err.Error()
	}
	c.JSON(http.StatusBadRequest, body)
}
