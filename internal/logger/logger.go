// Package logger builds the zerolog logger shared by the CLI and server.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Level  string    // debug, info, warn, error or disabled; anything else is info
	Pretty bool      // console output for a terminal
	Output io.Writer // defaults to stderr so tables on stdout stay clean
}

// New sets the global level from cfg and returns a timestamped logger.
func New(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

// SetGlobalLogger makes l the logger behind zerolog/log.
func SetGlobalLogger(l zerolog.Logger) {
	log.Logger = l
}
