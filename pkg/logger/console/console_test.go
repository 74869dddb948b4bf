package console

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestConsoleLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger(ConsoleLoggerParams{Format: "json", Output: &buf})

	l.Info("[Pipeline] Run finished", "processed", 3)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected a JSON line, got %q: %v", buf.String(), err)
	}
	if line["msg"] != "[Pipeline] Run finished" {
		t.Fatalf("expected message, got %v", line["msg"])
	}
	if line["processed"] != float64(3) {
		t.Fatalf("expected processed=3, got %v", line["processed"])
	}
}

func TestConsoleLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger(ConsoleLoggerParams{Level: "warn", Format: "logfmt", Output: &buf})

	l.Info("hidden")
	l.Debug("hidden")
	l.Warn("shown", "dataset", "funding")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("expected info and debug to be filtered, got %q", out)
	}
	if !strings.Contains(out, "dataset=funding") {
		t.Fatalf("expected logfmt key value, got %q", out)
	}
}

func TestConsoleLogger_DebugOverridesLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger(ConsoleLoggerParams{Debug: true, Level: "error", Output: &buf})

	l.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("expected debug line, got %q", buf.String())
	}
}
