// Package logging provides structured logging for the evently client using zerolog.
// The default logger writes to stderr, in console format on terminals and as
// JSON otherwise. Clients take their logger from options and fall back to it.
//
// Stores scope the context logger to the entity they act on, and the
// transport logs each request through it, so request lines carry the ids:
//
//	ctx = logging.WithLogger(ctx, logger)
//	ctx = logging.WithEvent(ctx, 42)
//	logging.FromContext(ctx).Debug().Msg("event deleted")
package logging

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var defaultLogger = newDefaultLogger()

// newDefaultLogger honours EVENTLY_LOG_LEVEL, EVENTLY_LOG_FORMAT and
// EVENTLY_DEBUG, with the bare names as fallbacks.
func newDefaultLogger() zerolog.Logger {
	var w io.Writer = os.Stderr
	if isTerminal(os.Stderr) && getEnv("LOG_FORMAT") != "json" {
		w = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
			NoColor:    os.Getenv("NO_COLOR") != "",
		}
	}

	level := envLevel()
	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()
	if level <= zerolog.DebugLevel {
		logger = logger.With().Caller().Logger()
	}
	return logger
}

// Default returns the default global logger.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// SetDefault sets the default global logger.
func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
	log.Logger = logger
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// getEnv reads EVENTLY_<key>, falling back to the bare key.
func getEnv(key string) string {
	if v := os.Getenv("EVENTLY_" + key); v != "" {
		return v
	}
	return os.Getenv(key)
}

func envLevel() zerolog.Level {
	if s := getEnv("LOG_LEVEL"); s != "" {
		return parseLevel(s)
	}
	if getEnv("DEBUG") != "" {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}
