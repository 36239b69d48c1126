// Package config loads harness configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the knobs shared by the CLI commands.
type Config struct {
	// Server
	Host string
	Port string

	// Archive database
	DBPath string

	// Response cache; empty RedisURL disables caching
	RedisURL        string
	CacheTTLSeconds int

	// Default output directory for run artifacts
	OutDir string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Host:            getEnv("HOST", "127.0.0.1"),
		Port:            getEnv("PORT", "8090"),
		DBPath:          getEnv("DEALSIGNAL_DB", "dealsignal.db"),
		RedisURL:        getEnv("REDIS_URL", ""),
		CacheTTLSeconds: getEnvInt("CACHE_TTL_SECONDS", 3600),
		OutDir:          getEnv("DEALSIGNAL_OUT_DIR", "results"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
