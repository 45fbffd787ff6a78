// Package config loads server settings from the environment.
//
// A .env file in the working directory is read first when present; real
// environment variables always win over it. Command-line flags in cmd/server
// override both.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/warp/advance-tax/logger"
)

type Config struct {
	// HTTP
	Port        string
	CORSOrigins []string

	// Storage
	DBPath string

	// Background recalculation; 0 disables the scheduler
	RecalcInterval time.Duration

	// Logging
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// Load reads .env (if any) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	interval, err := time.ParseDuration(getEnv("RECALC_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("config validation failed: RECALC_INTERVAL: %w", err)
	}

	config := &Config{
		Port:           getEnv("PORT", "8080"),
		CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "*")),
		DBPath:         getEnv("DB_PATH", "advtax.db"),
		RecalcInterval: interval,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:  getEnv("LOG_TIME_FORMAT", time.RFC3339),
		LogOutput:      getEnv("LOG_OUTPUT", "stdout"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	if c.RecalcInterval < 0 {
		return fmt.Errorf("RECALC_INTERVAL must not be negative")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
