package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const PROD_STRING = "prod"

// Config holds all application configuration loaded from environment.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	HTTPAddr     string
	DBDSN        string
	// MigrateOnStart applies the embedded schema before serving.
	MigrateOnStart bool

	JWTSecret string
	JWTIssuer string

	FacilityTimezone *time.Location
	StoreTxTimeout   time.Duration
	StoreLockTimeout time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	LogLevel  string
	LogFormat string
}

// Load loads configuration from .env (optional) and environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		log.Printf("failed to load .env file: %v", err)
	}

	cfg := &Config{}

	// Production origin (default: empty)
	cfg.ProdOrigins = getEnv("PROD_ORIGINS", "")

	// Application environment (default: dev)
	appEnvStr := getEnv("APP_ENV", "dev")
	cfg.IsProduction = appEnvStr == PROD_STRING

	// HTTP listen address (default: :8080)
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	// Database DSN is required
	cfg.DBDSN = os.Getenv("DB_DSN")
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required")
	}

	cfg.MigrateOnStart, err = getEnvAsBool("DB_MIGRATE_ON_START", true)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIGRATE_ON_START: %w", err)
	}

	// JWT secret is required for verifying tokens from the identity service
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	cfg.JWTIssuer = getEnv("JWT_ISSUER", "")

	// Facility timezone decides weekdays and receipt dates (default: Asia/Seoul)
	tz := getEnv("FACILITY_TIMEZONE", "Asia/Seoul")
	cfg.FacilityTimezone, err = time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid FACILITY_TIMEZONE %q: %w", tz, err)
	}

	// Upper bound for one reservation transaction, parsed as time.Duration (e.g. "5s").
	cfg.StoreTxTimeout, err = getEnvAsDuration("STORE_TX_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid STORE_TX_TIMEOUT: %w", err)
	}
	cfg.StoreLockTimeout, err = getEnvAsDuration("STORE_LOCK_TIMEOUT", 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid STORE_LOCK_TIMEOUT: %w", err)
	}

	// Kafka is optional; without brokers events are only logged.
	cfg.KafkaBrokers = splitList(getEnv("KAFKA_BROKERS", ""))
	cfg.KafkaTopic = getEnv("KAFKA_TOPIC", "reservation-events")

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

// getEnv returns the value of the environment variable if set,
// otherwise returns the provided default value.
func getEnv(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer.
// It returns the default value if the variable is not set.
// It returns an error if the variable is set but is not a valid integer.
func getEnvAsInt(key string, defaultValue int) (int, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		// Return 0 and a wrapped error to provide context
		return 0, fmt.Errorf("env %s value %q is not a valid integer: %w", key, valStr, err)
	}

	return val, nil
}

func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(valStr)
	if err != nil {
		return false, fmt.Errorf("env %s value %q is not a valid bool: %w", key, valStr, err)
	}
	return val, nil
}

// getEnvAsDuration accepts Go durations ("750ms", "5s") or plain milliseconds.
func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	var val time.Duration
	if ms, err := getEnvAsInt(key, 0); err == nil {
		val = time.Duration(ms) * time.Millisecond
	} else if val, err = time.ParseDuration(valStr); err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid duration: %w", key, valStr, err)
	}
	if val <= 0 {
		return 0, fmt.Errorf("env %s must be positive", key)
	}
	return val, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
