package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"albumsync/internal/config"
	"albumsync/internal/logging"
	"albumsync/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")

	logger, err := logging.NewFromConfig(&cfg, false)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("run started")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "run started") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestNewFromConfigVerboseEnablesDebug(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg, true)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	if !logger.Enabled(context.Background(), -4) {
		t.Fatal("expected debug level to be enabled in verbose mode")
	}
}

func TestConsoleHandlerRendersSubject(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger = logging.NewComponentLogger(logger, "transfer")
	logger.Info("item synced",
		logging.String(logging.FieldDestination, "Trip"),
		logging.String(logging.FieldItemID, "ab12"),
		logging.Outcome(logging.OutcomeSynced),
		logging.Int(logging.FieldAttempt, 2),
	)

	line := buf.String()
	for _, fragment := range []string{"INFO transfer: [Trip/ab12] item synced", "outcome=synced", "attempt=2"} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("expected %q in %q", fragment, line)
		}
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no source location at info level, got %q", line)
	}
}

func TestConsoleHandlerQuotesValues(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("upload failed", logging.Error(errors.New("status 503: backend error")))
	if !strings.Contains(buf.String(), `error="status 503: backend error"`) {
		t.Fatalf("expected quoted error, got %q", buf.String())
	}
}

func TestJSONHandlerUsesStableKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("destination resolved", logging.String(logging.FieldDestination, "Trip"))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, buf.String())
	}
	if payload["level"] != "info" {
		t.Fatalf("expected lowercase level, got %v", payload["level"])
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", payload)
	}
	if payload[logging.FieldDestination] != "Trip" {
		t.Fatalf("expected destination field, got %v", payload)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml", Writer: &bytes.Buffer{}}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithRunID(context.Background(), "run-1")
	ctx = services.WithDestination(ctx, "Trip")
	ctx = services.WithItemID(ctx, "item-7")
	logging.WithContext(ctx, logger).Info("hello")

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if payload[logging.FieldRunID] != "run-1" || payload[logging.FieldItemID] != "item-7" || payload[logging.FieldDestination] != "Trip" {
		t.Fatalf("expected context fields, got %v", payload)
	}
}

func TestErrorWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.ErrorWithContext(logger, "ledger write failed", "ledger_write")

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if payload[logging.FieldEventType] != "ledger_write" {
		t.Fatalf("expected event type, got %v", payload)
	}
	if payload[logging.FieldErrorHint] == "" || payload[logging.FieldErrorHint] == nil {
		t.Fatalf("expected error hint, got %v", payload)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), 8) {
		t.Fatal("nop logger must not be enabled")
	}
	logging.NewComponentLogger(nil, "x").Info("ignored")
}
