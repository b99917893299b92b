package graphqlwsclient

import (
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// defaultLogger writes nothing unless a caller opts in with WithLogger; it
// exists so every code path can unconditionally call into a *zerolog.Logger
// without nil checks.
func defaultLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// newConnectionLogger tags a logger with a fresh correlation id for one
// connection's lifetime, so log lines from the builder, the Client and the
// actor of that connection can be grepped together.
func newConnectionLogger(base zerolog.Logger) zerolog.Logger {
	return base.With().Str("connection_id", uuid.NewString()).Logger()
}

// NewConsoleLogger builds a human-readable logger suitable for local
// development and the example programs; production callers are expected to
// supply their own zerolog.Logger via WithLogger instead.
func NewConsoleLogger(level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}
