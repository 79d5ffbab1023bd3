package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLogger_Formats(t *testing.T) {
	tests := []struct {
		format string
		want   []string
	}{
		{"text", []string{"msg=\"probe sent\"", "seq=3"}},
		{"json", []string{`"msg":"probe sent"`, `"seq":3`}},
		{"JSON", []string{`"msg":"probe sent"`}},
		{"", []string{"msg=\"probe sent\""}},
	}

	for _, tc := range tests {
		t.Run(tc.format, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLoggerWithWriter("info", tc.format, &buf)
			logger.Info("probe sent", KeySequence, 3)

			for _, w := range tc.want {
				if !strings.Contains(buf.String(), w) {
					t.Errorf("output %q does not contain %q", buf.String(), w)
				}
			}
		})
	}
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		name         string
		configLevel  string
		logLevel     slog.Level
		shouldAppear bool
	}{
		{"debug at debug level", "debug", slog.LevelDebug, true},
		{"debug at info level", "info", slog.LevelDebug, false},
		{"info at warn level", "warn", slog.LevelInfo, false},
		{"warn at warning level", "warning", slog.LevelWarn, true},
		{"warn at error level", "error", slog.LevelWarn, false},
		{"error at error level", "error", slog.LevelError, true},
		{"info at unknown level", "bogus", slog.LevelInfo, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLoggerWithWriter(tc.configLevel, "text", &buf)

			logger.Log(context.Background(), tc.logLevel, "test message")

			if hasOutput := buf.Len() > 0; hasOutput != tc.shouldAppear {
				t.Errorf("level %s at config %s: expected shouldAppear=%v, got output=%v",
					tc.logLevel, tc.configLevel, tc.shouldAppear, hasOutput)
			}
		})
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := WithComponent(NewLoggerWithWriter("info", "text", &buf), "session")

	logger.Info("resolved", KeyDestination, "example.com", KeyAddress, "93.184.215.14")

	output := buf.String()
	for _, w := range []string{"component=session", "destination=example.com", "address=93.184.215.14"} {
		if !strings.Contains(output, w) {
			t.Errorf("expected %q in output, got: %s", w, output)
		}
	}
}

func TestWithComponent_NilLogger(t *testing.T) {
	logger := WithComponent(nil, "session")
	if logger == nil {
		t.Fatal("WithComponent(nil) returned nil")
	}
	// Should not panic
	logger.Info("discarded")
}

func TestValidLevelAndFormat(t *testing.T) {
	for _, l := range []string{"debug", "info", "warn", "warning", "error"} {
		if !ValidLevel(l) {
			t.Errorf("ValidLevel(%q) = false, want true", l)
		}
	}
	if ValidLevel("trace") {
		t.Error("ValidLevel(\"trace\") = true, want false")
	}
	if !ValidFormat("json") || !ValidFormat("text") {
		t.Error("text and json should be valid formats")
	}
	if ValidFormat("xml") {
		t.Error("ValidFormat(\"xml\") = true, want false")
	}
}
