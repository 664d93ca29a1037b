// Package config loads daemon settings from the environment (with an
// optional .env file) and from ~/.prepwise/config.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/prepwise/internal/validation"
	"github.com/joho/godotenv"
)

// Storage backends
const (
	BackendJSON     = "json"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// ErrMissingSecret means JWT_SECRET is unset outside debug mode
var ErrMissingSecret = errors.New("JWT_SECRET must be set unless DEBUG is enabled")

// Config holds settings read from the environment. Empty values leave the
// local config untouched.
type Config struct {
	// Server
	Port  int `validate:"gte=0,lte=65535"`
	Debug bool

	// Storage and messaging
	StorageBackend string `validate:"omitempty,oneof=json sqlite postgres redis"`
	DatabaseURL    string
	RedisURL       string
	RabbitMQURL    string

	// Auth
	JWTSecret string
	JWTExpiry time.Duration `validate:"gte=0"`

	// HTTP
	AllowedOrigins []string

	// LLM
	GeminiAPIKey string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first when present; variables already set
// in the environment win over it.
func Load() (*Config, error) {
	return LoadFrom(".env")
}

// LoadFrom is Load with an explicit .env path
func LoadFrom(envFile string) (*Config, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := &Config{
		Port:           getEnvInt("PREPWISE_PORT", 0),
		Debug:          getEnvBool("DEBUG", false),
		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", "")),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		RedisURL:       getEnv("REDIS_URL", ""),
		RabbitMQURL:    getEnv("RABBITMQ_URL", ""),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		JWTExpiry:      time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 0)) * time.Hour,
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS"),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
	}

	if err := validation.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid environment: %s", validation.Message(err))
	}
	if cfg.JWTSecret == "" && !cfg.Debug {
		return nil, ErrMissingSecret
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping blank entries
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
