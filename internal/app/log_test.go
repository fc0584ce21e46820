package app

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLogHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(&logHandler{w: &buf, opID: "op-123"})

	logger.Info("world saved", "world", "kitchen", "record", "rec-1")

	line := strings.TrimSuffix(buf.String(), "\n")
	parts := strings.Split(line, "\t")
	if len(parts) != 6 {
		t.Fatalf("field count = %d, want 6: %q", len(parts), line)
	}
	if parts[1] != "INFO" {
		t.Errorf("level = %q, want INFO", parts[1])
	}
	if parts[2] != "op-123" {
		t.Errorf("opID = %q, want op-123", parts[2])
	}
	if parts[3] != "world saved" {
		t.Errorf("message = %q", parts[3])
	}
	if parts[4] != "world=kitchen" {
		t.Errorf("attr = %q, want world=kitchen", parts[4])
	}
	if parts[5] != "record=rec-1" {
		t.Errorf("attr = %q, want record=rec-1", parts[5])
	}
}

func TestLogHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(&logHandler{w: &buf, opID: "op-1"})
	logger = logger.With("world", "garage")

	logger.Warn("upload failed", "error", "offline")

	line := buf.String()
	if !strings.Contains(line, "world=garage") {
		t.Errorf("pre-set attr missing: %q", line)
	}
	if !strings.Contains(line, "error=offline") {
		t.Errorf("per-record attr missing: %q", line)
	}
	if !strings.Contains(line, "WARN") {
		t.Errorf("level missing: %q", line)
	}
}

func TestNewLogger_CreatesLogFile(t *testing.T) {
	dir := t.TempDir()

	logger, f, err := newLogger(dir, "op-1")
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	defer f.Close()

	if logger == nil {
		t.Fatal("nil logger")
	}
	if f.Name() != dir+"/pinpoint.log" {
		t.Errorf("log file = %q, want %q", f.Name(), dir+"/pinpoint.log")
	}
}
