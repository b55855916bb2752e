package config

import (
	"os"
	"strconv"

	"go.uber.org/zap"
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv                string
	SourceDir             string
	CountriesFile         string
	OutputPath            string
	DBPath                string
	DBDriver              string
	RedisAddr             string
	GRPCPort              int
	GRPCReflectionEnabled bool
	DashboardEnabled      bool
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() *Config {
	portStr := getEnv("GRPC_PORT", "50051")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = 50051
	}

	return &Config{
		AppEnv:                getEnv("APP_ENV", "development"),
		SourceDir:             getEnv("SOURCE_DIR", "."),
		CountriesFile:         os.Getenv("COUNTRIES_FILE"),
		OutputPath:            getEnv("OUTPUT_PATH", "NPS Quarterly Summary.xlsx"),
		DBPath:                getEnv("DB_PATH", "./data/reports.db"),
		DBDriver:              getEnv("DB_DRIVER", "sqlite3"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		GRPCPort:              port,
		GRPCReflectionEnabled: getBool("GRPC_REFLECTION_ENABLED", false),
		DashboardEnabled:      getBool("DASHBOARD_ENABLED", false),
	}
}

// NewLogger creates a new Zap logger based on the config.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	if cfg.AppEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(fallback)))
	if err != nil {
		return fallback
	}
	return v
}
