package loghandler

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestCompactHandlerRendersTag(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCompactHandler(&buf, slog.LevelInfo))

	logger.Info("snapshot applied", "tag", "table", "pot", 120)

	line := buf.String()
	if !strings.Contains(line, "[table] snapshot applied pot=120") {
		t.Errorf("unexpected line: %q", line)
	}
	if strings.Contains(line, "tag=") {
		t.Errorf("tag should not be repeated as key=value: %q", line)
	}
}

func TestCompactHandlerWithAttrsTag(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCompactHandler(&buf, slog.LevelInfo)).With("tag", "ws", "url", "ws://x")

	logger.Warn("dial failed")

	line := buf.String()
	if !strings.Contains(line, "WARN [ws] dial failed url=ws://x") {
		t.Errorf("unexpected line: %q", line)
	}
}

func TestCompactHandlerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCompactHandler(&buf, ParseLevel("warn")))

	logger.Info("hidden")
	logger.Error("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("info record should be filtered at warn level")
	}
	if !strings.Contains(buf.String(), "ERROR shown") {
		t.Errorf("expected error record, got %q", buf.String())
	}
}
