// Package logger provides the zerolog setup shared by every command.
package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

// New returns a logger tagged with the service name.
func New(serviceName string, debug bool) zerolog.Logger {
	return NewWithWriter(os.Stdout, serviceName, debug)
}

func NewWithWriter(w io.Writer, serviceName string, debug bool) zerolog.Logger {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(w).Level(level).With().
		Str("service", serviceName).
		Timestamp().
		Logger()
}

// SetGlobal makes l the logger behind zerolog/log.
func SetGlobal(l zerolog.Logger) {
	log.Logger = l
	zerolog.DefaultContextLogger = &l
}
