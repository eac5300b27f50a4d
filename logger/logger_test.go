package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestLoggerLevelFiltering(t *testing.T) {
	tests := []struct {
		name         string
		level        Level
		messageLevel Level
		shouldLog    bool
	}{
		{"DEBUG logs at DEBUG level", DEBUG, DEBUG, true},
		{"INFO logs at DEBUG level", DEBUG, INFO, true},
		{"DEBUG doesn't log at INFO level", INFO, DEBUG, false},
		{"ERROR logs at INFO level", INFO, ERROR, true},
		{"WARN logs at ERROR level", ERROR, WARN, false},
		{"ERROR logs at ERROR level", ERROR, ERROR, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.level)
			result := logger.shouldLog(tt.messageLevel, "plain message")
			if result != tt.shouldLog {
				t.Errorf("shouldLog(%v) = %v, want %v", tt.messageLevel, result, tt.shouldLog)
			}
		})
	}
}

func TestPackageLevelOverride(t *testing.T) {
	logger := New(WARN)
	logger.packageLevels = map[string]Level{"mpris": DEBUG}

	if !logger.shouldLog(DEBUG, "[mpris] tracklist replaced") {
		t.Error("mpris override should let DEBUG through")
	}
	if logger.shouldLog(DEBUG, "[api] request") {
		t.Error("api has no override, DEBUG should be filtered at WARN")
	}
	if !logger.shouldLog(WARN, "no component") {
		t.Error("WARN should pass at WARN level")
	}
}

func TestExtractComponent(t *testing.T) {
	tests := map[string]string{
		"[mpris] hello":   "mpris",
		"[artwork]":       "artwork",
		"no prefix":       "",
		"[unterminated x": "",
		"[]":              "",
	}
	for msg, want := range tests {
		if got := extractComponent(msg); got != want {
			t.Errorf("extractComponent(%q) = %q, want %q", msg, got, want)
		}
	}
}

func TestLoggerFormat(t *testing.T) {
	logger := New(INFO)
	formatted := logger.format(INFO, "test message")

	if !strings.Contains(formatted, "[INFO ]") {
		t.Errorf("formatted message should contain '[INFO ]', got: %s", formatted)
	}
	if !strings.Contains(formatted, "test message") {
		t.Errorf("formatted message should contain 'test message', got: %s", formatted)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"warning", WARN},
		{"Error", ERROR},
		{"fatal", FATAL},
		{"nope", WARN},
		{"", WARN},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input, WARN); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestOutputRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	originalLevel := defaultLogger.level
	SetOutput(&buf)
	defer func() {
		SetLevel(originalLevel)
		SetOutput(os.Stderr)
	}()

	SetLevel(WARN)
	Info("hidden %s", "message")
	Warn("visible %s", "message")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("INFO message should be filtered, got %q", out)
	}
	if !strings.Contains(out, "visible message") {
		t.Errorf("WARN message missing, got %q", out)
	}
}

func TestGlobalLoggerInstance(t *testing.T) {
	if defaultLogger == nil {
		t.Fatal("defaultLogger should be initialized")
	}
}

func BenchmarkLoggerShouldLog(b *testing.B) {
	logger := New(INFO)
	for i := 0; i < b.N; i++ {
		logger.shouldLog(INFO, "[mpris] bench")
	}
}
