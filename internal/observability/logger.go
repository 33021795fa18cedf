// Package observability holds the structured logger and Prometheus metrics
// shared by every mudra component.
package observability

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	mu           sync.Mutex
	globalLogger zerolog.Logger
	initialized  bool
)

// ParseLevel maps a config level name onto a zerolog level, defaulting to info.
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
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

// InitLogger initializes the global structured logger.
// Subsequent calls are ignored so tests and main can both call it safely.
func InitLogger(level string, pretty bool) {
	initLogger(os.Stderr, level, pretty)
}

func initLogger(w io.Writer, level string, pretty bool) {
	mu.Lock()
	defer mu.Unlock()
	if initialized {
		return
	}

	zerolog.SetGlobalLevel(ParseLevel(level))

	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	globalLogger = zerolog.New(w).With().Timestamp().Logger()
	log.Logger = globalLogger
	initialized = true
}

// GetLogger returns the global logger, initializing it with defaults if needed.
func GetLogger() zerolog.Logger {
	mu.Lock()
	ready := initialized
	mu.Unlock()
	if !ready {
		InitLogger("info", false)
	}
	mu.Lock()
	defer mu.Unlock()
	return globalLogger
}

// Logger returns the global logger tagged with a component name.
func Logger(component string) zerolog.Logger {
	return GetLogger().With().Str("component", component).Logger()
}

// WithSession tags a logger with the recognition session id.
func WithSession(l zerolog.Logger, sessionID string) zerolog.Logger {
	if sessionID == "" {
		return l
	}
	return l.With().Str("session_id", sessionID).Logger()
}
