package logging

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"trace":   LevelTrace,
		"debug":   LevelDebug,
		"info":    LevelInfo,
		"warn":    LevelWarn,
		"WARNING": LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"bogus":   LevelInfo,
		" Debug ": LevelDebug,
	}
	for raw, want := range cases {
		if got := ParseLevel(raw); got != want {
			t.Errorf("ParseLevel(%q) = %d, want %d", raw, got, want)
		}
	}
}

func newBufferedLogger(level Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return &Logger{
		base:  log.New(&buf, "test ", 0),
		level: level,
	}, &buf
}

func TestLevelGate(t *testing.T) {
	l, buf := newBufferedLogger(LevelWarn)

	l.Tracef("trace line")
	l.Debugf("debug line")
	l.Infof("info line")
	l.Warnf("warn line")
	l.Errorf("error line")

	out := buf.String()
	if strings.Contains(out, "trace line") || strings.Contains(out, "debug line") || strings.Contains(out, "info line") {
		t.Errorf("sub-warn lines leaked: %q", out)
	}
	if !strings.Contains(out, "warn line") || !strings.Contains(out, "error line") {
		t.Errorf("expected warn and error lines, got %q", out)
	}
}

func TestWithPrefixKeepsLevel(t *testing.T) {
	l, buf := newBufferedLogger(LevelError)

	derived := l.WithPrefix("sub ")
	derived.Infof("quiet")
	derived.Errorf("loud")

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Errorf("derived logger ignored level gate: %q", out)
	}
	if !strings.Contains(out, "sub loud") {
		t.Errorf("expected prefixed error line, got %q", out)
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Infof("no panic")
	l.Errorf("no panic")
}
