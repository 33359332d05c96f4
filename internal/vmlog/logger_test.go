package vmlog

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerBasic(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "TEST", FlagLevel|FlagPrefix)

	l.Info("hello %s", "world")

	out := buf.String()
	if !strings.Contains(out, "[INFO]") {
		t.Error("missing log level")
	}
	if !strings.Contains(out, "[TEST]") {
		t.Error("missing prefix")
	}
	if !strings.Contains(out, "hello world") {
		t.Error("missing message")
	}
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "", FlagLevel)
	l.SetLevel(LogLevelWarn)

	l.Debug("debug message")
	l.Info("info message")
	l.Warn("warn message")
	l.Error("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Error("sub-threshold messages should be suppressed")
	}
	if !strings.Contains(out, "warn message") || !strings.Contains(out, "error message") {
		t.Error("at-or-above-threshold messages should be logged")
	}
}

func TestLoggerDisabled(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "", 0)
	l.SetEnabled(false)
	l.Error("should not appear")

	if buf.Len() != 0 {
		t.Error("disabled logger should not write anything")
	}
}
