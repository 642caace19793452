// Package logging provides leveled loggers over the standard library log package.
package logging

import (
	"log"
	"os"
	"strings"
)

// Level orders log verbosity from most to least chatty.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a LOG_LEVEL value to a Level, defaulting to info.
func ParseLevel(raw string) Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return LevelTrace
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger gates a prefixed stdlib logger by level.
type Logger struct {
	base  *log.Logger
	level Level
}

// New creates a component logger writing to stdout with the given prefix.
func New(prefix string, level Level) *Logger {
	return &Logger{
		base:  log.New(os.Stdout, prefix, log.LstdFlags|log.Lmicroseconds),
		level: level,
	}
}

// WithPrefix derives a logger for a sub-component at the same level.
func (l *Logger) WithPrefix(prefix string) *Logger {
	return &Logger{
		base:  log.New(l.base.Writer(), prefix, l.base.Flags()),
		level: l.level,
	}
}

func (l *Logger) logf(level Level, format string, args ...any) {
	if l == nil || level < l.level {
		return
	}
	l.base.Printf(format, args...)
}

// Tracef logs at trace level.
func (l *Logger) Tracef(format string, args ...any) { l.logf(LevelTrace, format, args...) }

// Debugf logs at debug level.
func (l *Logger) Debugf(format string, args ...any) { l.logf(LevelDebug, format, args...) }

// Infof logs at info level.
func (l *Logger) Infof(format string, args ...any) { l.logf(LevelInfo, format, args...) }

// Warnf logs at warn level.
func (l *Logger) Warnf(format string, args ...any) { l.logf(LevelWarn, format, args...) }

// Errorf logs at error level.
func (l *Logger) Errorf(format string, args ...any) { l.logf(LevelError, format, args...) }

// Fatalf logs unconditionally and exits with a non-zero status.
func (l *Logger) Fatalf(format string, args ...any) {
	if l == nil {
		log.Fatalf(format, args...)
		return
	}
	l.base.Fatalf(format, args...)
}
