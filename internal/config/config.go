/**
 * @description
 * Configuration loader for the StockPulse backend.
 * Responsible for reading environment variables, setting defaults, and performing strict validation.
 *
 * @dependencies
 * - github.com/joho/godotenv: For loading .env files
 * - standard "os": For reading env vars
 * - standard "fmt": For error reporting
 *
 * @notes
 * - Fails fast if critical variables (Database URL) are missing.
 * - Uses a Singleton-like pattern where Load() returns a Config struct.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	Redis      RedisConfig
	MarketData MarketDataConfig
	Auth       AuthConfig
	Evaluation EvaluationConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port string
	Env  string // "development" or "production"
}

// DBConfig holds PostgreSQL settings
type DBConfig struct {
	URL string
}

// RedisConfig holds Redis settings
type RedisConfig struct {
	URL string
}

// MarketDataConfig holds quote provider endpoints and keys
type MarketDataConfig struct {
	QuoteAPIURL string
	QuoteAPIKey string
	StreamURL   string // Optional websocket quote stream; empty disables streaming
}

// AuthConfig holds JWT validation settings
type AuthConfig struct {
	JWKSURL string // URL to fetch JSON Web Key Set for JWT validation
}

// EvaluationConfig holds evaluation engine tuning knobs
type EvaluationConfig struct {
	Concurrency int // Bounded worker pool size for price fetches within one pass
}

// Load reads .env file and populates the Config struct
func Load() (*Config, error) {
	// Attempt to load .env, but don't crash if it fails (k8s/prod might inject env vars directly)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("GO_ENV", "development"),
		},
		DB: DBConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		MarketData: MarketDataConfig{
			QuoteAPIURL: getEnv("QUOTE_API_URL", "https://api.twelvedata.com"),
			QuoteAPIKey: sanitizeCredential(getEnv("QUOTE_API_KEY", "")),
			StreamURL:   getEnv("QUOTE_STREAM_URL", ""),
		},
		Auth: AuthConfig{
			JWKSURL: getEnv("JWKS_URL", ""),
		},
		Evaluation: EvaluationConfig{
			Concurrency: getEnvAsInt("EVAL_CONCURRENCY", 4),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks for required variables
func validate(cfg *Config) error {
	if cfg.DB.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.MarketData.QuoteAPIKey == "" && cfg.Server.Env != "test" {
		// Warning: the evaluation worker cannot fetch realized prices without it
		fmt.Println("Warning: QUOTE_API_KEY is missing. Price lookups will fail.")
	}
	if cfg.Evaluation.Concurrency < 1 {
		cfg.Evaluation.Concurrency = 1
	}
	return nil
}

// Helper to get env var with default
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func sanitizeCredential(value string) string {
	trimmed := strings.TrimSpace(value)
	return strings.Trim(trimmed, "\"")
}

// Helper to get env var as int
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
