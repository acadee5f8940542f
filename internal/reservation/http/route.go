package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers reservation routes. Every route needs a signed-in user.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlersChain, adminMiddleware gin.HandlerFunc) {
	group := g.Group("/reservations")
	group.Use(authMiddleware...)
	{
		group.POST("", h.Submit)                  // Submit a reservation request
		group.GET("", h.List)                     // Own reservations; admins see all
		group.POST("/conflicts", h.ListConflicts) // Advisory pre-flight check
		group.GET("/:id", h.Get)                  // Get reservation details
		group.PATCH("/:id", h.Edit)               // Move or re-equip a reservation
	}

	// === Admin Routes ===
	admin := group.Group("", adminMiddleware)
	{
		admin.GET("/pending-count", h.PendingCount)
		admin.POST("/:id/approve", h.Approve)
		admin.POST("/:id/reject", h.Reject)
		admin.DELETE("/:id", h.Delete)
	}
}
