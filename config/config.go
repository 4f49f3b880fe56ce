package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseDriver string
	DatabaseURL    string
	DBLogLevel     string
	JWTSecret      string
	JWTExpiration  time.Duration
	ServerHost     string
	ServerPort     int
	Location       *time.Location
	LogLevel       slog.Level
	AdminEmail     string
	AdminPassword  string
}

// Load reads the configuration from the environment. When envFile is set
// it is loaded first; variables already present in the environment win.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	expiration, err := time.ParseDuration(getEnv("JWT_EXPIRATION", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION: %w", err)
	}

	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid SERVER_PORT %q", os.Getenv("SERVER_PORT"))
	}

	loc, err := time.LoadLocation(getEnv("TIME_ZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIME_ZONE: %w", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	driver := strings.ToLower(getEnv("DATABASE_DRIVER", "postgres"))
	if driver != "postgres" && driver != "sqlite" {
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", driver)
	}

	return &Config{
		DatabaseDriver: driver,
		DatabaseURL:    getEnv("DATABASE_URL", "postgresql://postgres@localhost:5432/teamclock"),
		DBLogLevel:     getEnv("DB_LOG_LEVEL", "warn"),
		JWTSecret:      getEnv("JWT_SECRET", "your-super-secret-key-change-in-production"),
		JWTExpiration:  expiration,
		ServerHost:     getEnv("SERVER_HOST", ""),
		ServerPort:     port,
		Location:       loc,
		LogLevel:       level,
		AdminEmail:     getEnv("ADMIN_EMAIL", "admin@example.com"),
		AdminPassword:  getEnv("ADMIN_PASSWORD", "admin"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
