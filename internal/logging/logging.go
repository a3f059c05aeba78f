// Package logging configures the process-wide zerolog.Logger that the
// Manager, the State Actor, and every Download Worker log through.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds a logger writing structured JSON to stderr, or a
// console-pretty writer at debug level when debug is true.
func New(debug bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	if debug {
		writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
		return zerolog.New(writer).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).Level(zerolog.InfoLevel).With().Timestamp().Logger()
}
