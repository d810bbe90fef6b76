package utils

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger provides structured, leveled logging throughout the application.
// It wraps a zerolog console logger behind printf-style methods so call
// sites stay compact.
type Logger struct {
	zl zerolog.Logger
}

// NewLogger creates a Logger writing human-readable output to stderr at
// the given minimum level ("debug", "info", "warn", "error").
func NewLogger(level string) *Logger {
	lvl := parseLevel(level)

	zl := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "2006-01-02 15:04:05",
	}).Level(lvl).With().Timestamp().Logger()

	return &Logger{zl: zl}
}

// NewNopLogger returns a Logger that discards everything. Used in tests.
func NewNopLogger() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l *Logger) Info(format string, args ...any)  { l.zl.Info().Msgf(format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.zl.Warn().Msgf(format, args...) }
func (l *Logger) Error(format string, args ...any) { l.zl.Error().Msgf(format, args...) }
func (l *Logger) Debug(format string, args ...any) { l.zl.Debug().Msgf(format, args...) }
