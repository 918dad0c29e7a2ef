package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func newTestLogger() (*DefaultLogger, *bytes.Buffer, *bytes.Buffer) {
	color.NoColor = true
	var stdout, stderr bytes.Buffer
	return NewWriterLogger(&stdout, &stderr), &stdout, &stderr
}

func TestDefaultLogger_Streams(t *testing.T) {
	l, stdout, stderr := newTestLogger()

	l.Info("capture started")
	l.Warn("device close")
	l.Error(errors.New("boom"), "capture failed")

	if !strings.Contains(stdout.String(), "[INFO] capture started") {
		t.Errorf("Expected info on stdout, got %q", stdout.String())
	}
	if strings.Contains(stdout.String(), "WARN") || strings.Contains(stdout.String(), "ERROR") {
		t.Errorf("Expected no warnings on stdout, got %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "[WARN] device close") {
		t.Errorf("Expected warning on stderr, got %q", stderr.String())
	}
	if !strings.Contains(stderr.String(), "[ERROR] capture failed: boom") {
		t.Errorf("Expected error on stderr, got %q", stderr.String())
	}
}

func TestDefaultLogger_Level(t *testing.T) {
	l, stdout, _ := newTestLogger()

	l.Debug("hidden")
	if stdout.Len() != 0 {
		t.Errorf("Expected debug to be filtered at info level, got %q", stdout.String())
	}

	child := l.WithFields(Fields{"session": "abc"})
	l.SetLevel(DebugLevel)
	child.Debug("shown")
	if !strings.Contains(stdout.String(), "[DEBUG] shown") {
		t.Errorf("Expected child to follow parent level, got %q", stdout.String())
	}
}

func TestDefaultLogger_Fields(t *testing.T) {
	l, stdout, _ := newTestLogger()

	l.WithFields(Fields{"session": "abc", "mode": "chord"}).Info("capture started", Fields{"window": 4096})

	if !strings.Contains(stdout.String(), "capture started mode=chord session=abc window=4096") {
		t.Errorf("Expected sorted fields, got %q", stdout.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		ok   bool
	}{
		{"debug", DebugLevel, true},
		{" INFO ", InfoLevel, true},
		{"warning", WarnLevel, true},
		{"Error", ErrorLevel, true},
		{"loud", InfoLevel, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSetGlobalLoggerNil(t *testing.T) {
	prev := GetGlobalLogger()
	defer SetGlobalLogger(prev)

	SetGlobalLogger(nil)
	if _, ok := GetGlobalLogger().(*NoOpLogger); !ok {
		t.Errorf("Expected NoOpLogger, got %T", GetGlobalLogger())
	}
	Info("dropped")
}
