package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"INFO", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
		{"unknown", zapcore.InfoLevel},
	}
	for _, c := range cases {
		if got := parseLevel(c.in); got != c.want {
			t.Errorf("parseLevel(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestLoggerIsUsable(t *testing.T) {
	log := Logger()
	if log == nil {
		t.Fatalf("Logger returned nil")
	}
	// Logging must not panic at any level.
	log.Debugf("debug %d", 1)
	log.Infof("info %d", 2)
	log.Warnf("warn %d", 3)

	if With("component", "test") == nil {
		t.Errorf("With returned nil")
	}
}

func TestSetLogLevel(t *testing.T) {
	Logger() // ensure initialized

	SetLogLevel("debug")
	if !atomicLevel.Enabled(zapcore.DebugLevel) {
		t.Errorf("debug level not enabled after SetLogLevel(debug)")
	}
	SetLogLevel("error")
	if atomicLevel.Enabled(zapcore.InfoLevel) {
		t.Errorf("info level still enabled after SetLogLevel(error)")
	}
	SetLogLevel("info")
}
