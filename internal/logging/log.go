// Package logging provides the process-wide structured logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger used throughout the Core process.
var Logger zerolog.Logger

// Level is a logging verbosity level, matching zerolog's names.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config controls global logger construction.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init builds the global Logger from cfg. Must be called once at startup,
// before any component logs.
func Init(cfg Config) {
	var zl zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		zl = zerolog.DebugLevel
	case WarnLevel:
		zl = zerolog.WarnLevel
	case ErrorLevel:
		zl = zerolog.ErrorLevel
	default:
		zl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(zl)

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	if cfg.JSONOutput {
		Logger = zerolog.New(out).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	}
}

func init() {
	Init(Config{Level: InfoLevel})
}

// WithComponent returns a child logger tagged with the given component name.
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithResourceID returns a child logger tagged with a resource kind+id.
func WithResourceID(kind, id string) zerolog.Logger {
	return Logger.With().Str("resource_kind", kind).Str("resource_id", id).Logger()
}

// WithUpdateID returns a child logger tagged with an Update id.
func WithUpdateID(updateID string) zerolog.Logger {
	return Logger.With().Str("update_id", updateID).Logger()
}

// WithOperation returns a child logger tagged with an operation name.
func WithOperation(op string) zerolog.Logger {
	return Logger.With().Str("operation", op).Logger()
}

func Info(msg string)             { Logger.Info().Msg(msg) }
func Debug(msg string)             { Logger.Debug().Msg(msg) }
func Warn(msg string)              { Logger.Warn().Msg(msg) }
func Error(msg string)             { Logger.Error().Msg(msg) }
func Errorf(msg string, err error) { Logger.Error().Err(err).Msg(msg) }
