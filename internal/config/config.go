package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Env       string
	Port      string
	JWTSecret string
	Database  DatabaseConfig
	Sweep     SweepConfig
	Analytics AnalyticsConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// SweepConfig holds scheduling for the background sweep
type SweepConfig struct {
	Enabled  bool
	Interval time.Duration
}

// AnalyticsConfig holds classification thresholds for the analytics
// recomputation. These are policy values, kept configurable so boundary
// behavior can be exercised without patching globals.
type AnalyticsConfig struct {
	DeadStockDays    int
	SlowMovingDays   int
	TopProducts      int
	ExpiryWarning    time.Duration
	LowStockLookback time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return &Config{
		Env:       getEnv("APP_ENV", "development"),
		Port:      getEnv("PORT", "3001"),
		JWTSecret: jwtSecret,
		Database: DatabaseConfig{
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Username: getEnv("PG_USERNAME", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			Database: getEnv("PG_DATABASE", "labstock"),
		},
		Sweep: SweepConfig{
			Enabled:  getEnv("SWEEP_ENABLED", "true") == "true",
			Interval: getEnvDuration("SWEEP_INTERVAL", time.Hour),
		},
		Analytics: AnalyticsConfig{
			DeadStockDays:    getEnvInt("DEAD_STOCK_DAYS", 90),
			SlowMovingDays:   getEnvInt("SLOW_MOVING_DAYS", 30),
			TopProducts:      getEnvInt("TOP_PRODUCTS", 5),
			ExpiryWarning:    getEnvDuration("EXPIRY_WARNING", 30*24*time.Hour),
			LowStockLookback: getEnvDuration("LOW_STOCK_LOOKBACK", 90*24*time.Hour),
		},
	}, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
