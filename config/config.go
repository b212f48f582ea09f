package config

import (
	"os"
	"strconv"
	"time"

	"github.com/layer-3/starnotary/core"
)

// Config holds the server settings
type Config struct {
	Addr string
	// RedisURL selects the Redis state store and event stream. Empty keeps
	// state in memory and events on an in-process channel.
	RedisURL string
	// LedgerPath is the SQLite database for the chain. Empty keeps the chain in memory.
	LedgerPath       string
	ValidationWindow time.Duration
	LogLevel         string
	LogFormat        string
	// AdminKeyFile is a PEM encoded P-256 key signing operator tokens.
	AdminKeyFile     string
	AdminTokenTTL    time.Duration
	EventTopicPrefix string
}

// Load reads the configuration from the environment
func Load() Config {
	return Config{
		Addr:             envString("STARNOTARY_ADDR", ":8000"),
		RedisURL:         envString("REDIS_URL", ""),
		LedgerPath:       envString("LEDGER_PATH", "starnotary.db"),
		ValidationWindow: envSeconds("VALIDATION_WINDOW", core.DefaultValidationWindow),
		LogLevel:         envString("LOG_LEVEL", "info"),
		LogFormat:        envString("LOG_FORMAT", "text"),
		AdminKeyFile:     envString("ADMIN_KEY_FILE", ""),
		AdminTokenTTL:    envDuration("ADMIN_TOKEN_TTL", 24*time.Hour),
		EventTopicPrefix: envString("EVENT_TOPIC_PREFIX", "starnotary"),
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// envSeconds accepts a plain number of seconds or a Go duration string.
func envSeconds(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	if d, err := time.ParseDuration(v); err == nil && d >= time.Second {
		return d
	}
	return def
}
