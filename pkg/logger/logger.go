// Package logger configures the process-wide zerolog logger. Outside
// production it writes human-readable console output; in production it emits
// plain JSON.
package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init sets up the global logger for the given environment.
func Init(environment string, debug bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if environment == "production" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()
}

// Get returns the configured global logger.
func Get() zerolog.Logger {
	return log.Logger
}

// Info logs a message with alternating key/value pairs.
func Info(msg string, keysAndValues ...interface{}) {
	withFields(log.Info(), keysAndValues).Msg(msg)
}

// Warn logs a warning with alternating key/value pairs.
func Warn(msg string, keysAndValues ...interface{}) {
	withFields(log.Warn(), keysAndValues).Msg(msg)
}

// Error logs an error with optional key/value context.
func Error(msg string, err error, keysAndValues ...interface{}) {
	withFields(log.Error().Err(err), keysAndValues).Msg(msg)
}

// Fatal logs an error and exits.
func Fatal(msg string, err error) {
	log.Fatal().Err(err).Msg(msg)
}

func withFields(ev *zerolog.Event, keysAndValues []interface{}) *zerolog.Event {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, keysAndValues[i+1])
	}
	return ev
}
