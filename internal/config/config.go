package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries process-level settings. Everything comes from environment
// variables; a local .env file is honored for development.
type Config struct {
	AppEnv        string
	Port          string
	JWTSecret     string
	ServiceAPIKey string

	// UseRedisCache selects the Redis-backed cache so the per-owner
	// aggregation cooldown is shared across replicas.
	UseRedisCache bool

	AggregateCooldown time.Duration
	FanoutInterval    time.Duration
}

// Load reads configuration from the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("[Config] No .env file loaded: %v", err)
	}

	return &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		Port:              getEnv("PORT", "8080"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		ServiceAPIKey:     os.Getenv("SERVICE_API_KEY"),
		UseRedisCache:     getEnvBool("USE_REDIS_CACHE", false),
		AggregateCooldown: getEnvSeconds("AGGREGATE_COOLDOWN_SECONDS", 0),
		FanoutInterval:    getEnvSeconds("FANOUT_INTERVAL_SECONDS", 0),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		log.Printf("[Config] Invalid bool for %s: %q, using %v", key, val, fallback)
		return fallback
	}
	return parsed
}

func getEnvSeconds(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	secs, err := strconv.Atoi(val)
	if err != nil || secs < 0 {
		log.Printf("[Config] Invalid seconds for %s: %q, using %v", key, val, fallback)
		return fallback
	}
	return time.Duration(secs) * time.Second
}
