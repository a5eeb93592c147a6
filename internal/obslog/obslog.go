// Package obslog wires the runtime's structured logging on top of
// zerolog, with child loggers scoped by world, module, and action.
package obslog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide base logger. Init must be called once
// before any component logger is derived from it.
var Logger zerolog.Logger

// Level is a string-typed log level accepted by Config.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config controls Init.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init configures the global Logger.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case InfoLevel:
		level = zerolog.InfoLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

func init() {
	// Sane default so packages that log during tests don't panic on a
	// zero-value Logger.
	Init(Config{Level: InfoLevel, JSONOutput: true})
}

// WithComponent scopes a logger to a subsystem name (e.g. "kernel",
// "consensus", "membership").
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithWorldID scopes a logger to a world id.
func WithWorldID(worldID string) zerolog.Logger {
	return Logger.With().Str("world_id", worldID).Logger()
}

// WithModuleID scopes a logger to a builtin module id.
func WithModuleID(moduleID string) zerolog.Logger {
	return Logger.With().Str("module_id", moduleID).Logger()
}

// WithActionID scopes a logger to an action id.
func WithActionID(actionID uint64) zerolog.Logger {
	return Logger.With().Uint64("action_id", actionID).Logger()
}
