package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/tidwall/gjson"
)

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LogLevelDebug, "DEBUG"},
		{LogLevelInfo, "INFO"},
		{LogLevelWarn, "WARN"},
		{LogLevelError, "ERROR"},
		{LogLevel(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.expected {
			t.Errorf("LogLevel(%d).String() = %q, expected %q", tt.level, got, tt.expected)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"debug", LogLevelDebug},
		{"DEBUG", LogLevelDebug},
		{"info", LogLevelInfo},
		{"warn", LogLevelWarn},
		{"Warning", LogLevelWarn},
		{"error", LogLevelError},
		{"unknown", LogLevelInfo},
		{"", LogLevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLogLevel(tt.input); got != tt.expected {
			t.Errorf("ParseLogLevel(%q) = %v, expected %v", tt.input, got, tt.expected)
		}
	}
}

func newBufLogger(level LogLevel, format string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewLogger(LoggerConfig{Level: level, Output: &buf, Prefix: "test", Format: format}), &buf
}

func TestLogger_Levels(t *testing.T) {
	logger, buf := newBufLogger(LogLevelWarn, FormatConsole)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	output := buf.String()
	for _, filtered := range []string{"debug message", "info message"} {
		if strings.Contains(output, filtered) {
			t.Errorf("expected %q to be filtered out", filtered)
		}
	}
	for _, want := range []string{"WARN", "warn message", "ERROR", "error message", "test"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestLogger_SetLevel(t *testing.T) {
	logger, buf := newBufLogger(LogLevelError, FormatConsole)
	child := logger.WithComponent("child")
	logger.SetLevel(LogLevelDebug)
	child.Debug("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Errorf("derived logger should follow the parent level, got: %s", buf.String())
	}
}

func TestLogger_Format(t *testing.T) {
	logger, buf := newBufLogger(LogLevelInfo, FormatConsole)
	logger.Info("formatted %s %d", "test", 42)
	if !strings.Contains(buf.String(), "formatted test 42") {
		t.Errorf("expected formatted message, got: %s", buf.String())
	}
}

func TestLogger_JSONFields(t *testing.T) {
	logger, buf := newBufLogger(LogLevelDebug, FormatJSON)

	logger.WithComponent("collab").WithFields(map[string]any{
		"clientID": "abc",
		"dropped":  2,
	}).Warn("dropped steps")

	line := buf.String()
	if !gjson.Valid(strings.TrimSpace(line)) {
		t.Fatalf("expected one JSON line, got: %s", line)
	}
	tests := []struct {
		path string
		want string
	}{
		{"level", "WARN"},
		{"logger", "test"},
		{"msg", "dropped steps"},
		{"component", "collab"},
		{"clientID", "abc"},
		{"dropped", "2"},
	}
	for _, tt := range tests {
		if got := gjson.Get(line, tt.path).String(); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestLogger_DisableEnable(t *testing.T) {
	logger, buf := newBufLogger(LogLevelInfo, FormatConsole)

	logger.Disable()
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected no output while disabled, got: %s", buf.String())
	}

	logger.Enable()
	logger.Info("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected output after Enable, got: %s", buf.String())
	}
}

func TestNullLogger(t *testing.T) {
	NullLogger.Info("ignored")
	NullLogger.WithField("k", "v").Error("ignored")
	var nilLogger *Logger
	nilLogger.Warn("ignored")
}
