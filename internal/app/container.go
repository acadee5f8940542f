package app

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/campus-rental-backend/internal/api"
	"github.com/nekogravitycat/campus-rental-backend/internal/auth"
	"github.com/nekogravitycat/campus-rental-backend/internal/calendar"
	"github.com/nekogravitycat/campus-rental-backend/internal/event"
	"github.com/nekogravitycat/campus-rental-backend/internal/reservation"
	"github.com/nekogravitycat/campus-rental-backend/internal/resource"
	"github.com/nekogravitycat/campus-rental-backend/internal/user"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	DBPool       *pgxpool.Pool
	JWTSecret    string
	JWTIssuer    string

	FacilityLocation *time.Location
	TxTimeout        time.Duration
	LockTimeout      time.Duration

	// Publisher receives lifecycle events. Nil means log only.
	Publisher event.Publisher
	Logger    *slog.Logger
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router             *gin.Engine
	TokenVerifier      *auth.TokenVerifier
	ReservationService reservation.Service
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) *Container {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Publisher == nil {
		cfg.Publisher = event.NewLogPublisher(cfg.Logger)
	}

	// Init Components
	tokenVerifier := auth.NewTokenVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	calendarEngine := calendar.NewEngine(cfg.FacilityLocation)

	// User Module
	userRepo := user.NewPgxRepository(cfg.DBPool)
	userService := user.NewService(userRepo)

	// Resource Module
	resRepo := resource.NewPgxRepository(cfg.DBPool)
	resService := resource.NewService(resRepo)

	// Reservation Module
	reservationRepo := reservation.NewPgxRepository(cfg.DBPool, reservation.TxConfig{
		Timeout:     cfg.TxTimeout,
		LockTimeout: cfg.LockTimeout,
	})
	reservationService := reservation.NewService(
		reservationRepo,
		resService,
		userService,
		calendarEngine,
		cfg.Publisher,
		cfg.Logger,
	)

	// Router
	router := api.NewRouter(api.Config{
		IsProduction:       cfg.IsProduction,
		ProdOrigins:        cfg.ProdOrigins,
		UserService:        userService,
		ResourceService:    resService,
		ReservationService: reservationService,
		TokenVerifier:      tokenVerifier,
	})

	return &Container{
		Router:             router,
		TokenVerifier:      tokenVerifier,
		ReservationService: reservationService,
	}
}
