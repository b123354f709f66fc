package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
)

type Config struct {
	// Storage
	Backend string // "sqlite" or "memory"
	DBPath  string

	// Logging
	LogLevel string

	// Display
	Currency string

	// Recurrence horizon: how many occurrences a recurring entry
	// materializes, the head included.
	RecurrenceHorizon int
}

func Load() *Config {
	return &Config{
		Backend:           getEnv("DOMINIO_BACKEND", "sqlite"),
		DBPath:            getEnv("DOMINIO_DB_PATH", defaultDBPath()),
		LogLevel:          getEnv("DOMINIO_LOG_LEVEL", "info"),
		Currency:          getEnv("DOMINIO_CURRENCY", "BRL"),
		RecurrenceHorizon: getEnvInt("DOMINIO_RECURRENCE_HORIZON", 12),
	}
}

// Validate checks the configuration and aggregates every problem found
// into a single error.
func (c *Config) Validate() error {
	var errs []string

	switch c.Backend {
	case "sqlite":
		if c.DBPath == "" {
			errs = append(errs, "database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.DBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					errs = append(errs, fmt.Sprintf("cannot create database directory %q: %v", dir, err))
				}
			}
		}
	case "memory":
	default:
		errs = append(errs, fmt.Sprintf("invalid backend %q: must be sqlite or memory", c.Backend))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid log level %q", c.LogLevel))
	}

	if c.RecurrenceHorizon < 1 || c.RecurrenceHorizon > 120 {
		errs = append(errs, fmt.Sprintf("invalid recurrence horizon %d: must be between 1 and 120", c.RecurrenceHorizon))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// defaultDBPath resolves the database file under the XDG data home,
// falling back to a local data directory when that fails.
func defaultDBPath() string {
	path, err := xdg.DataFile("dominio/dominio.db")
	if err != nil {
		return "./data/dominio.db"
	}
	return path
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
