package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Service is attached to every log line so output from this binary can be
// told apart from the LMS front service in shared log sinks.
const Service = "lms-certify"

// Setup initializes the global zerolog logger based on environment configuration.
//   - level: log level string (trace, debug, info, warn, error, fatal, panic)
//   - format: "json" for production, "pretty" for human-readable dev output
//
// Returns the configured logger instance.
func Setup(level, format string) zerolog.Logger {
	var writer io.Writer = os.Stdout
	if format == "pretty" {
		writer = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}
	return New(writer, level)
}

// New builds a logger that writes to w. Tests pass a bytes.Buffer.
func New(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(lvl)

	return zerolog.New(w).
		With().
		Timestamp().
		Caller().
		Str("service", Service).
		Logger()
}
