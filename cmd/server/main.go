package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/nekogravitycat/campus-rental-backend/internal/app"
	"github.com/nekogravitycat/campus-rental-backend/internal/config"
	"github.com/nekogravitycat/campus-rental-backend/internal/db"
	"github.com/nekogravitycat/campus-rental-backend/internal/event"
	"github.com/nekogravitycat/campus-rental-backend/internal/pkg/logger"
)

func main() {
	// For receiving Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "campus-rental",
	})
	slog.SetDefault(log)

	// Connect DB
	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		log.Error("failed to connect to db", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx, pool); err != nil {
			log.Error("failed to migrate db", slog.Any("error", err))
			os.Exit(1)
		}
	}

	// Event publisher: Kafka when brokers are configured, log otherwise
	var publisher event.Publisher = event.NewLogPublisher(log)
	if len(cfg.KafkaBrokers) > 0 {
		kp, err := event.NewKafkaPublisher(event.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		}, log)
		if err != nil {
			log.Error("failed to create kafka publisher", slog.Any("error", err))
			os.Exit(1)
		}
		publisher = kp
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("failed to close event publisher", slog.Any("error", err))
		}
	}()

	container := app.NewContainer(app.Config{
		IsProduction:     cfg.IsProduction,
		ProdOrigins:      cfg.ProdOrigins,
		DBPool:           pool,
		JWTSecret:        cfg.JWTSecret,
		JWTIssuer:        cfg.JWTIssuer,
		FacilityLocation: cfg.FacilityTimezone,
		TxTimeout:        cfg.StoreTxTimeout,
		LockTimeout:      cfg.StoreLockTimeout,
		Publisher:        publisher,
		Logger:           log,
	})

	// Use http.Server for graceful shutdown
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           container.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run server in separate goroutine
	go func() {
		log.Info("server running", slog.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", slog.Any("error", err))
			stop()
		}
	}()

	// Wait for Ctrl+C
	<-ctx.Done()
	log.Info("shutdown signal received")

	// Create a shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("server forced to shutdown", slog.Any("error", err))
	}

	log.Info("server exited gracefully")
}
