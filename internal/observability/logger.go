// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package observability builds the structured logger used across the pipeline.
package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LoggingConfig contains logger configuration options.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string

	// Format is json or console.
	Format string

	// Output receives log lines. Nil means stderr, keeping stdout for results.
	Output io.Writer
}

// DefaultLoggingConfig returns console logging at info level on stderr.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:  "info",
		Format: "console",
	}
}

// NewLogger creates a zerolog logger from cfg.
func NewLogger(cfg LoggingConfig) zerolog.Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	if strings.EqualFold(cfg.Format, "console") || strings.EqualFold(cfg.Format, "pretty") {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.TimeOnly,
		}
	}

	return zerolog.New(output).
		With().
		Timestamp().
		Logger().
		Level(ParseLevel(cfg.Level))
}

// ParseLevel converts a level name to zerolog.Level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// WithRun tags every entry with a fresh run_id and the query.
func WithRun(logger zerolog.Logger, query string) zerolog.Logger {
	return logger.With().
		Str("run_id", uuid.NewString()).
		Str("query", query).
		Logger()
}

// WithPaper adds the PMID to a logger.
func WithPaper(logger zerolog.Logger, pmid string) zerolog.Logger {
	return logger.With().Str("pmid", pmid).Logger()
}
