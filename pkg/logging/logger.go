// Package logging configures the process-wide zerolog logger for the crawler.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs per-page and per-entry events.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs per-application milestones.
	LevelInfo LogLevel = "info"

	// LevelWarn logs recoverable problems.
	LevelWarn LogLevel = "warn"

	// LevelError logs failed applications only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output instead of JSON.
	Pretty bool

	// Output receives log lines. Nil means os.Stderr.
	Output io.Writer

	// Service, when set, is attached to every line as "service".
	Service string
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:   LevelInfo,
		Pretty:  false,
		Output:  os.Stderr,
		Service: "review-crawler",
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	ctx := zerolog.New(output).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	logger := ctx.Logger()

	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level. Unknown values mean info.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(string(level))) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a sub-logger of the global logger tagged with component.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug:
//   - Page requests and cache hits (page, key)
//   - Dropped entries (has_title, has_review)
//   - Extraction counts per page
//
// Info:
//   - Unit start and finish (apps, succeeded, failed)
//   - Application completed (pages, records)
//   - Crawl complete (pages, duration)
//   - Metrics server startup
//
// Warn:
//   - Cache errors (crawl continues from the network)
//   - Aborted crawls (page, discarded_pages)
//
// Error:
//   - Failed applications (error_kind)
//   - Target configuration errors (fatal)
//
// Context Fields:
//   - component: fetcher, pipeline, client, cache, appstore-extractor, playstore-extractor
//   - platform: app_store or play_store
//   - app_id, country: target application
//   - page: page number
//   - error_kind: config_load, request, parse
//   - error_class: client, server, rate_limit, network
