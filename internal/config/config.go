// Package config loads settings for the xydo commands from the environment.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultAPIURL  = "http://localhost:5001/api"
	DefaultDevAddr = ":5001"
)

// Config holds client and dev server settings.
type Config struct {
	// Client
	APIURL      string
	Store       string
	StoreDSN    string
	StorePrefix string

	// Logging
	LogLevel string

	// Dev server
	DevAddr                string
	DevSecret              string
	DevTokenTTL            time.Duration
	DevRequireVerification bool
	DevRateLimit           float64 // requests per second per client IP
	DevRateBurst           int
}

// Load reads an optional .env file from the working directory and then the
// environment. Variables already set win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return FromEnv(), nil
}

// FromEnv builds a Config from the current environment only.
func FromEnv() *Config {
	return &Config{
		APIURL:                 getEnv("XYDO_API_URL", DefaultAPIURL),
		Store:                  getEnv("XYDO_STORE", "sqlite"),
		StoreDSN:               getEnv("XYDO_STORE_DSN", defaultStoreDSN()),
		StorePrefix:            getEnv("XYDO_STORE_PREFIX", "xydo:"),
		LogLevel:               getEnv("XYDO_LOG_LEVEL", "info"),
		DevAddr:                getEnv("XYDO_DEV_ADDR", DefaultDevAddr),
		DevSecret:              getEnv("XYDO_DEV_SECRET", "xydo-dev-secret"),
		DevTokenTTL:            time.Duration(getEnvInt("XYDO_DEV_TOKEN_TTL_MIN", 60*24)) * time.Minute,
		DevRequireVerification: getEnvBool("XYDO_DEV_REQUIRE_VERIFICATION", false),
		DevRateLimit:           getEnvFloat("XYDO_DEV_RATE_LIMIT", 20),
		DevRateBurst:           getEnvInt("XYDO_DEV_RATE_BURST", 40),
	}
}

// defaultStoreDSN places the sqlite file under the user config directory,
// falling back to the working directory.
func defaultStoreDSN() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "xydo-storage.db"
	}
	return filepath.Join(dir, "xydo", "storage.db")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
