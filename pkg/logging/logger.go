// Package logging wraps zerolog with the key/value logging style used across the validator.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Service is attached to every line written by a logger built with Init.
const Service = "price-validator"

// Logger wraps zerolog.Logger
type Logger struct {
	logger zerolog.Logger
}

// Init builds the process logger. level falls back to info when unparsable;
// output is stdout, stderr or a file path; format "text" selects console output.
func Init(level, format, output string) (*Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	writer, err := openOutput(output)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(format, "text") {
		writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(writer).With().Timestamp().Str("service", Service).Logger()
	log.Logger = logger

	return &Logger{logger: logger}, nil
}

func openOutput(output string) (io.Writer, error) {
	switch output {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) // #nosec G304 -- operator supplied log path
	if err != nil {
		return nil, fmt.Errorf("failed to open log output %s: %w", output, err)
	}
	return file, nil
}

// New wraps an existing zerolog.Logger
func New(logger zerolog.Logger) *Logger {
	return &Logger{logger: logger}
}

// NewNoopLogger returns a logger that discards everything
func NewNoopLogger() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

// With returns a child logger carrying one extra field.
func (l *Logger) With(key string, value interface{}) *Logger {
	ctx := l.logger.With()
	switch v := value.(type) {
	case string:
		ctx = ctx.Str(key, v)
	case fmt.Stringer:
		ctx = ctx.Stringer(key, v)
	default:
		ctx = ctx.Interface(key, v)
	}
	return &Logger{logger: ctx.Logger()}
}

func (l *Logger) Debug(msg string, fields ...interface{}) { emit(l.logger.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...interface{})  { emit(l.logger.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...interface{})  { emit(l.logger.Warn(), msg, fields) }
func (l *Logger) Error(msg string, fields ...interface{}) { emit(l.logger.Error(), msg, fields) }

// Fatal logs and exits the process.
func (l *Logger) Fatal(msg string, fields ...interface{}) { emit(l.logger.Fatal(), msg, fields) }

// ZerologLogger returns the underlying zerolog.Logger
func (l *Logger) ZerologLogger() zerolog.Logger {
	return l.logger
}

// emit writes alternating key/value pairs. Non-string keys and a trailing
// unpaired value are dropped. Addresses and big integers are written through
// their String method.
func emit(event *zerolog.Event, msg string, fields []interface{}) {
	if event == nil {
		return
	}
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		switch v := fields[i+1].(type) {
		case error:
			event.AnErr(key, v)
		case string:
			event.Str(key, v)
		case time.Duration:
			event.Str(key, v.String())
		case fmt.Stringer:
			event.Stringer(key, v)
		default:
			event.Interface(key, v)
		}
	}
	event.Msg(msg)
}

var global *Logger

// SetGlobal sets the process-wide logger.
func SetGlobal(l *Logger) {
	global = l
}

// Global returns the process-wide logger, or a noop logger if none is set.
func Global() *Logger {
	if global == nil {
		return NewNoopLogger()
	}
	return global
}
