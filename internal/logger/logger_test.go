package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	Init()
	var buf bytes.Buffer
	previous := defaultLogger
	install(&buf)
	t.Cleanup(func() {
		defaultLogger = previous
		slog.SetDefault(previous)
		level.Set(slog.LevelInfo)
	})
	return &buf
}

func TestErrorAddsErrorAttribute(t *testing.T) {
	buf := captureLogs(t)

	Error("Failed to fetch page", errors.New("boom"), "url", "https://example.com")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["error"] != "boom" {
		t.Errorf("Expected error attribute 'boom', got %v", entry["error"])
	}
	if entry["url"] != "https://example.com" {
		t.Errorf("Expected url attribute, got %v", entry["url"])
	}
	if entry["level"] != "ERROR" {
		t.Errorf("Expected level ERROR, got %v", entry["level"])
	}
}

func TestSetLevelFiltersDebug(t *testing.T) {
	buf := captureLogs(t)

	SetLevel("info")
	Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("Expected debug output to be filtered at info level, got %q", buf.String())
	}

	SetLevel("DEBUG")
	Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("Expected debug output after SetLevel(debug), got %q", buf.String())
	}
}

func TestWithCarriesAttributes(t *testing.T) {
	buf := captureLogs(t)

	With("component", "crawler").Info("started")

	if !strings.Contains(buf.String(), `"component":"crawler"`) {
		t.Errorf("Expected component attribute in output, got %q", buf.String())
	}
}
