package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/hashicorp/go-multierror"
)

// Config holds all configuration for the application
type Config struct {
	DatabaseURL    string
	TelegramToken  string
	LogLevel       string
	Port           string
	MigrationsPath string
}

// Load loads configuration from environment variables. All problems are
// collected and reported together rather than one per restart.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		LogLevel:       getEnvOrDefault("LOG_LEVEL", "info"),
		Port:           getEnvOrDefault("PORT", "8080"),
		MigrationsPath: getEnvOrDefault("MIGRATIONS_PATH", "migrations"),
	}

	var errs *multierror.Error
	if cfg.DatabaseURL == "" {
		errs = multierror.Append(errs, fmt.Errorf("DATABASE_URL environment variable is required"))
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("PORT must be numeric, got %q", cfg.Port))
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// BotEnabled reports whether the Telegram surface should start.
// The token is optional: without it the service runs HTTP-only.
func (c *Config) BotEnabled() bool {
	return c.TelegramToken != ""
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
