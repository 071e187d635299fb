package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(&buf, "info", "json")
		logger.Debug("hidden")
		logger.Info("Meeting started", "meeting_id", "m-1")

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 1 {
			t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
		}
		var record map[string]any
		if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
			t.Fatalf("output is not JSON: %v", err)
		}
		if record["msg"] != "Meeting started" || record["meeting_id"] != "m-1" {
			t.Errorf("unexpected record: %v", record)
		}
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(&buf, "debug", "text")
		logger.Debug("Attendance recorded", "records", 3)
		if !strings.Contains(buf.String(), "Attendance recorded") {
			t.Errorf("expected message in output, got %q", buf.String())
		}
	})
}
