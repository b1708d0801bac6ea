// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds configuration shared by the API server and the sync relay.
type Config struct {
	Env         string // dev, prod
	HTTPPort    string
	DatabaseURL string

	KafkaBrokers []string

	RedisAddr     string
	RedisUsername string
	RedisPassword string

	// APIKeys maps API key -> client identifier.
	APIKeys map[string]string

	// CredentialKey is the 32-byte hex key used to seal office PMS credentials.
	CredentialKey string

	OpenAIAPIKey string

	OTLPEndpoint string

	BookingLockTTL  time.Duration
	SyncWorkers     int
	ShutdownTimeout time.Duration
	LogLevel        string
}

// Load reads configuration from the environment, honoring a local .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:             getEnv("APP_ENV", "dev"),
		HTTPPort:        getEnv("PORT", "8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisAddr:       getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisUsername:   os.Getenv("REDIS_USERNAME"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		CredentialKey:   os.Getenv("CREDENTIAL_KEY"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OTLPEndpoint:    getEnv("OTLP_ENDPOINT", "localhost:4317"),
		BookingLockTTL:  getDuration("BOOKING_LOCK_TTL", 5*time.Second),
		SyncWorkers:     getInt("SYNC_WORKERS", 8),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		LogLevel:        os.Getenv("LOG_LEVEL"),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}

	brokers := getEnv("KAFKA_BROKERS", "localhost:9092")
	cfg.KafkaBrokers = strings.Split(brokers, ",")

	cfg.APIKeys = map[string]string{}
	if key := os.Getenv("API_KEY"); key != "" {
		cfg.APIKeys[key] = "env-client"
	}
	// Comma-separated key:client pairs for multi-tenant setups.
	if pairs := os.Getenv("API_KEYS"); pairs != "" {
		for _, pair := range strings.Split(pairs, ",") {
			parts := strings.SplitN(pair, ":", 2)
			if len(parts) == 2 {
				cfg.APIKeys[parts[0]] = parts[1]
			}
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		fmt.Fprintf(os.Stderr, "invalid duration for %s=%q, using default %s\n", key, v, def)
	}
	return def
}
