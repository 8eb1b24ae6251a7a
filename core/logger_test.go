package core

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestProductionLoggerJSONFormat(t *testing.T) {
	logger := NewProductionLogger("test-service")
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	logger.SetFormat("json")

	logger.Warn("cache is full", map[string]interface{}{"max_size": 1000})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not valid JSON: %v\n%s", err, buf.String())
	}
	if entry["level"] != "WARN" {
		t.Errorf("level = %v, want WARN", entry["level"])
	}
	if entry["service"] != "test-service" {
		t.Errorf("service = %v, want test-service", entry["service"])
	}
	if entry["message"] != "cache is full" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["max_size"] != float64(1000) {
		t.Errorf("max_size = %v, want 1000", entry["max_size"])
	}
}

func TestProductionLoggerTextFormat(t *testing.T) {
	logger := NewProductionLogger("test-service")
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	logger.SetFormat("text")

	logger.Info("listener started", map[string]interface{}{"metric": "redis.commands"})

	line := buf.String()
	if !strings.Contains(line, "[INFO]") || !strings.Contains(line, "listener started") {
		t.Errorf("unexpected log line: %s", line)
	}
	if !strings.Contains(line, "metric=redis.commands") {
		t.Errorf("missing field in log line: %s", line)
	}
}

func TestProductionLoggerLevelFiltering(t *testing.T) {
	logger := NewProductionLogger("test-service")
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	logger.SetFormat("text")
	logger.SetLevel("ERROR")

	logger.Warn("should be suppressed", nil)
	if buf.Len() != 0 {
		t.Errorf("WARN logged despite ERROR level: %s", buf.String())
	}

	logger.Error("should appear", nil)
	if buf.Len() == 0 {
		t.Error("ERROR not logged")
	}
}

func TestProductionLoggerDebugDisabledByDefault(t *testing.T) {
	logger := NewProductionLogger("test-service")
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	logger.SetFormat("text")

	logger.Debug("hidden", nil)
	if buf.Len() != 0 {
		t.Errorf("DEBUG logged by default: %s", buf.String())
	}

	logger.SetLevel("DEBUG")
	logger.Debug("visible", nil)
	if buf.Len() == 0 {
		t.Error("DEBUG not logged after SetLevel(DEBUG)")
	}
}
