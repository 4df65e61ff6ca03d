package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(&buf, "json", "info")
	if err != nil {
		t.Fatalf("NewWithWriter: %v", err)
	}

	logger.Debug().Msg("hidden")
	logger.Info().Str("file", "a.md").Msg("translated")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["service"] != "peredoc" || entry["file"] != "a.md" || entry["message"] != "translated" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestNewWithWriter_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(&buf, "console", "debug")
	if err != nil {
		t.Fatalf("NewWithWriter: %v", err)
	}
	logger.Debug().Msg("hello")
	if !strings.Contains(buf.String(), "hello") || strings.HasPrefix(buf.String(), "{") {
		t.Errorf("expected console output, got %q", buf.String())
	}
}

func TestNew_BadLevel(t *testing.T) {
	if _, err := New("json", "loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}
