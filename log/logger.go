package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// This package implements a hierarchical logger which allows adding prefixes.

type Logger struct {
	// Internal logger
	zerolog.Logger

	// The current prefix
	prefix string
	level  zerolog.Level
	out    io.Writer
}

// NewLogger returns a console logger at the given level. Unparseable levels fall back to info.
func NewLogger(rawLevel string) *Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(rawLevel))
	if err != nil || rawLevel == "" {
		level = zerolog.InfoLevel
	}

	return newLoggerWithPrefix("", level, os.Stdout)
}

// NewNopLogger discards everything. Useful in tests.
func NewNopLogger() *Logger {
	return newLoggerWithPrefix("", zerolog.Disabled, io.Discard)
}

func newLoggerWithPrefix(prefix string, level zerolog.Level, out io.Writer) *Logger {
	output := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	output.FormatLevel = func(i interface{}) string {
		return strings.ToUpper(fmt.Sprintf("%s%s", i, prefix))
	}
	log := zerolog.New(output).Level(level).With().Timestamp().Logger()

	return &Logger{
		Logger: log,

		prefix: prefix,
		level:  level,
		out:    out,
	}
}

func (l *Logger) ApplyPrefix(additionalPrefix string) *Logger {
	newPrefix := fmt.Sprintf("%s%s", l.prefix, additionalPrefix)

	return newLoggerWithPrefix(newPrefix, l.level, l.out)
}
