package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const EnvDevelopment = "development"

type Config struct {
	Env           string
	Port          string
	DBPath        string
	MigrationsDir string
	CORSOrigins   []string
	JWTSecret     string
	TokenTTL      time.Duration
	SweepInterval time.Duration
	RatePerSecond float64
	RateBurst     int
}

// Load reads an optional .env file, then the process environment.
// Values already set in the environment win over the file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Env:           getEnv("APP_ENV", "production"),
		Port:          getEnv("PORT", "3001"),
		DBPath:        getEnv("DB_PATH", "./data/collectgame.db"),
		MigrationsDir: getEnv("MIGRATIONS_DIR", "./migrations"),
		CORSOrigins:   getEnvList("CORS_ORIGINS", []string{"http://localhost:8000", "http://localhost:3000"}),
		JWTSecret:     getEnv("JWT_SECRET", "change-this-secret"),
		TokenTTL:      time.Duration(getEnvInt("TOKEN_TTL_HOURS", 72)) * time.Hour,
		SweepInterval: time.Duration(getEnvInt("SWEEP_INTERVAL_SECONDS", 15)) * time.Second,
		RatePerSecond: getEnvFloat("RATE_LIMIT_PER_SECOND", 20),
		RateBurst:     getEnvInt("RATE_LIMIT_BURST", 40),
	}
}

func (c Config) Development() bool {
	return c.Env == EnvDevelopment
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}
