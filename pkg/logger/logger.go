// Package logger provides a thin leveled logging wrapper shared by all
// portal services.
package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps a zerolog.Logger with the service name attached to every
// event.
type Logger struct {
	zl zerolog.Logger
}

// New creates a logger for the named service. Output is JSON on stderr;
// the level is taken from LOG_LEVEL (default info).
func New(service string) *Logger {
	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(strings.ToLower(os.Getenv("LOG_LEVEL"))); err == nil && parsed != zerolog.NoLevel {
		level = parsed
	}

	zl := zerolog.New(os.Stderr).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Logger()

	return &Logger{zl: zl}
}

// NewDefault returns a logger suitable as a fallback when a component is
// constructed without one.
func NewDefault(service string) *Logger {
	return New(service)
}

// WithError returns a logger that annotates events with err.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{zl: l.zl.With().Err(err).Logger()}
}

// WithField returns a logger that annotates events with a key/value pair.
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{zl: l.zl.With().Interface(key, value).Logger()}
}

func (l *Logger) Debug(msg string) { l.zl.Debug().Msg(msg) }
func (l *Logger) Info(msg string)  { l.zl.Info().Msg(msg) }
func (l *Logger) Warn(msg string)  { l.zl.Warn().Msg(msg) }
func (l *Logger) Error(msg string) { l.zl.Error().Msg(msg) }

func (l *Logger) Debugf(format string, args ...any) { l.zl.Debug().Msgf(format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.zl.Info().Msgf(format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.zl.Warn().Msgf(format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.zl.Error().Msgf(format, args...) }

// LogRequest records one handled HTTP request.
func (l *Logger) LogRequest(method, path string, status int, duration time.Duration) {
	l.zl.Info().
		Str("method", method).
		Str("path", path).
		Int("status", status).
		Dur("duration", duration).
		Msg("http request")
}
