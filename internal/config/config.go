package config

import (
	"os"
	"time"
)

// Config holds service configuration.
type Config struct {
	ServerAddr    string
	LedgerURL     string
	LedgerTimeout time.Duration
	SessionTTL    time.Duration
}

// Load reads configuration from environment.
func Load() (*Config, error) {
	return &Config{
		ServerAddr:    getenv("SERVER_ADDR", "0.0.0.0:8080"),
		LedgerURL:     getenv("LEDGER_URL", "http://localhost:9090"),
		LedgerTimeout: parseDuration(getenv("LEDGER_TIMEOUT", "10s"), 10*time.Second),
		SessionTTL:    parseDuration(getenv("SESSION_TTL", "24h"), 24*time.Hour),
	}, nil
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func parseDuration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return d
}
