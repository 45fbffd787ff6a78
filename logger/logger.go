// Package logger configures the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogConfig holds logging configuration
type LogConfig struct {
	Level      string // trace, debug, info, warn, error
	Format     string // json, console
	TimeFormat string
	Output     string // stdout, stderr, or file path
}

// DefaultConfig returns the development logging configuration
func DefaultConfig() LogConfig {
	return LogConfig{
		Level:      "info",
		Format:     "console",
		TimeFormat: time.RFC3339,
		Output:     "stdout",
	}
}

// Setup initializes the global logger with the provided configuration.
// The returned closer releases a log file, if one was opened.
func Setup(config LogConfig) (io.Closer, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(config.Level))
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(level)

	var output io.Writer
	var closer io.Closer = nopCloser{}
	switch config.Output {
	case "", "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		file, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		output = file
		closer = file
	}

	log.Logger = New(output, config.Format, config.TimeFormat)

	if config.TimeFormat != "" {
		zerolog.TimeFieldFormat = config.TimeFormat
	}

	return closer, nil
}

// New builds a logger writing to w. Unknown formats fall back to console.
func New(w io.Writer, format, timeFormat string) zerolog.Logger {
	if strings.ToLower(format) != "json" {
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: timeFormat,
		}
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

// GetLogger returns the global logger
func GetLogger() zerolog.Logger {
	return log.Logger
}

// WithComponent returns a logger with a component field
func WithComponent(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
