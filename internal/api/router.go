package api

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/campus-rental-backend/internal/auth"
	"github.com/nekogravitycat/campus-rental-backend/internal/reservation"
	reservationHttp "github.com/nekogravitycat/campus-rental-backend/internal/reservation/http"
	"github.com/nekogravitycat/campus-rental-backend/internal/resource"
	resourceHttp "github.com/nekogravitycat/campus-rental-backend/internal/resource/http"
	"github.com/nekogravitycat/campus-rental-backend/internal/user"
)

// Config carries the services the router exposes.
type Config struct {
	IsProduction       bool
	ProdOrigins        string
	UserService        user.Service
	ResourceService    resource.Service
	ReservationService reservation.Service
	TokenVerifier      *auth.TokenVerifier
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (CORS, Logger, Auth) and registering routes for various modules.
func NewRouter(cfg Config) *gin.Engine {
	registerValidators()

	r := gin.New()

	// Global Middleware:
	// - Logger: Logs request information to the console.
	// - Recovery: Captures panics to prevent server crashes and returns a 500 error.
	r.Use(gin.Logger(), gin.Recovery())

	// Configure CORS (Cross-Origin Resource Sharing).
	corsConfig := cors.DefaultConfig()
	if cfg.IsProduction {
		corsConfig.AllowOrigins = splitOrigins(cfg.ProdOrigins)
	} else {
		corsConfig.AllowOrigins = []string{
			"http://localhost:3000", // Portal dev server
			"http://localhost:8081", // Swagger
		}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	if len(corsConfig.AllowOrigins) > 0 {
		r.Use(cors.New(corsConfig))
	}

	// authMiddleware: Validates the JWT, then loads the caller's role.
	authMiddleware := gin.HandlersChain{
		auth.AuthRequired(cfg.TokenVerifier),
		ResolveActor(cfg.UserService),
	}
	// sysAdminMiddleware: Further checks if the authenticated user has System Admin privileges.
	sysAdminMiddleware := RequireSystemAdmin()

	// Initialize HTTP Handlers for each module (injecting Service dependencies).
	resourceHandler := resourceHttp.NewHandler(cfg.ResourceService)
	reservationHandler := reservationHttp.NewHandler(cfg.ReservationService)

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		resourceHttp.RegisterRoutes(v1, resourceHandler, authMiddleware, sysAdminMiddleware)
		reservationHttp.RegisterRoutes(v1, reservationHandler, authMiddleware, sysAdminMiddleware)
	}

	return r
}

func splitOrigins(s string) []string {
	var origins []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
