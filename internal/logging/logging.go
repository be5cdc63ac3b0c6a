// Package logging builds the zerolog logger used by the spotlite CLI.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	// Level is one of debug, info, warn or error. Anything else means warn.
	Level string

	// File, when set, receives JSON logs instead of stderr. The file is
	// rotated once it reaches MaxSizeMB.
	File       string
	MaxSizeMB  int
	MaxBackups int

	// Out overrides stderr for console output. Used by tests.
	Out io.Writer
}

// ParseLevel maps a level name to a zerolog level.
func ParseLevel(name string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.WarnLevel
	}
}

// New creates a logger with the specified configuration. The returned
// closer flushes and closes the log file, if any.
func New(opts Options) (zerolog.Logger, io.Closer) {
	level := ParseLevel(opts.Level)

	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 10),
			MaxBackups: orDefault(opts.MaxBackups, 3),
		}
		logger := zerolog.New(rotator).
			Level(level).
			With().
			Timestamp().
			Logger()
		return logger, rotator
	}

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	// Pretty console output when logging to a terminal stream
	logger := zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
		Level(level).
		With().
		Timestamp().
		Logger()
	return logger, nopCloser{}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
