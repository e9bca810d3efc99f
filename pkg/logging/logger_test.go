// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// Level Tests
// =============================================================================

func TestLevel_String(t *testing.T) {
	cases := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(42), "UNKNOWN"},
	}

	for _, tc := range cases {
		if got := tc.level.String(); got != tc.want {
			t.Errorf("Level(%d).String() = %q, want %q", tc.level, got, tc.want)
		}
	}
}

func TestLevel_ToSlogLevel(t *testing.T) {
	cases := []struct {
		level Level
		want  slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
		{Level(42), slog.LevelInfo},
	}

	for _, tc := range cases {
		if got := tc.level.toSlogLevel(); got != tc.want {
			t.Errorf("Level(%d).toSlogLevel() = %v, want %v", tc.level, got, tc.want)
		}
	}
}

// =============================================================================
// Constructor Tests
// =============================================================================

func TestNew_ZeroConfig(t *testing.T) {
	logger := New(Config{})
	if logger == nil {
		t.Fatal("New returned nil")
	}
	if logger.Slog() == nil {
		t.Fatal("Slog() returned nil")
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestDefault(t *testing.T) {
	logger := Default()
	if logger == nil {
		t.Fatal("Default returned nil")
	}
	defer logger.Close()

	logger.Info("default logger message")
}

func TestNew_WithLogDir(t *testing.T) {
	dir := t.TempDir()

	logger := New(Config{
		Level:   LevelInfo,
		LogDir:  dir,
		Service: "deltad",
		Quiet:   true,
	})

	logger.Info("run started", "run_id", "r-1")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one log file, got %d", len(entries))
	}
	if !strings.HasPrefix(entries[0].Name(), "deltad_") || !strings.HasSuffix(entries[0].Name(), ".log") {
		t.Errorf("unexpected log file name %q", entries[0].Name())
	}
}

func TestNew_WithLogDir_DefaultServiceName(t *testing.T) {
	dir := t.TempDir()

	logger := New(Config{LogDir: dir, Quiet: true})
	logger.Info("message")
	logger.Close()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 || !strings.HasPrefix(entries[0].Name(), "deltascope_") {
		t.Fatalf("expected deltascope-prefixed log file, got %v", entries)
	}
}

func TestNew_WithLogDir_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")

	logger := New(Config{LogDir: dir, Service: "deltad", Quiet: true})
	logger.Info("message")
	logger.Close()

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("log directory was not created: %v", err)
	}
}

// =============================================================================
// File Content Tests
// =============================================================================

func TestLogger_FileContent(t *testing.T) {
	dir := t.TempDir()

	logger := New(Config{
		Level:   LevelInfo,
		LogDir:  dir,
		Service: "deltad",
		Quiet:   true,
	})
	logger.Info("instance analyzed", "instance_id", "django__django-1", "files", 3)
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected one log file, got %d", len(entries))
	}
	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	var record map[string]any
	line := bytes.TrimSpace(data)
	if err := json.Unmarshal(line, &record); err != nil {
		t.Fatalf("file log line is not JSON: %v (%q)", err, line)
	}
	if record["msg"] != "instance analyzed" {
		t.Errorf("msg = %v, want 'instance analyzed'", record["msg"])
	}
	if record["service"] != "deltad" {
		t.Errorf("service = %v, want 'deltad'", record["service"])
	}
	if record["instance_id"] != "django__django-1" {
		t.Errorf("instance_id = %v", record["instance_id"])
	}
}

// =============================================================================
// Exporter Tests
// =============================================================================

func TestLogger_ExporterReceivesEntries(t *testing.T) {
	exporter := NewBufferedExporter()
	logger := New(Config{
		Level:    LevelInfo,
		Service:  "deltad",
		Quiet:    true,
		Exporter: exporter,
	})
	defer logger.Close()

	logger.Info("comparison done", "path", "app/main.py")

	// Export runs on its own goroutine
	time.Sleep(50 * time.Millisecond)

	entries := exporter.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 exported entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Message != "comparison done" {
		t.Errorf("Message = %q", entry.Message)
	}
	if entry.Level != LevelInfo {
		t.Errorf("Level = %v", entry.Level)
	}
	if entry.Service != "deltad" {
		t.Errorf("Service = %q", entry.Service)
	}
	if entry.Attrs["path"] != "app/main.py" {
		t.Errorf("Attrs[path] = %v", entry.Attrs["path"])
	}
}

func TestLogger_ExporterLevelFiltering(t *testing.T) {
	exporter := NewBufferedExporter()
	logger := New(Config{
		Level:    LevelWarn,
		Quiet:    true,
		Exporter: exporter,
	})
	defer logger.Close()

	logger.Info("filtered out")
	logger.Warn("kept")

	time.Sleep(50 * time.Millisecond)

	entries := exporter.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 exported entry, got %d", len(entries))
	}
	if entries[0].Message != "kept" {
		t.Errorf("Message = %q, want 'kept'", entries[0].Message)
	}
}

type failingExporter struct {
	flushErr error
	closeErr error
}

func (e *failingExporter) Export(ctx context.Context, entry LogEntry) error { return nil }
func (e *failingExporter) Flush(ctx context.Context) error                  { return e.flushErr }
func (e *failingExporter) Close() error                                     { return e.closeErr }

func TestLogger_Close_ExporterFlushError(t *testing.T) {
	logger := New(Config{
		Quiet:    true,
		Exporter: &failingExporter{flushErr: errors.New("flush failed")},
	})

	err := logger.Close()
	if err == nil {
		t.Fatal("expected flush error from Close")
	}
	if !strings.Contains(err.Error(), "flush exporter") {
		t.Errorf("error = %v, want flush exporter wrap", err)
	}
}

func TestLogger_Close_ExporterCloseError(t *testing.T) {
	logger := New(Config{
		Quiet:    true,
		Exporter: &failingExporter{closeErr: errors.New("close failed")},
	})

	err := logger.Close()
	if err == nil {
		t.Fatal("expected close error from Close")
	}
	if !strings.Contains(err.Error(), "close exporter") {
		t.Errorf("error = %v, want close exporter wrap", err)
	}
}

// =============================================================================
// With / Concurrency Tests
// =============================================================================

func TestLogger_With(t *testing.T) {
	exporter := NewBufferedExporter()
	logger := New(Config{Quiet: true, Exporter: exporter})
	defer logger.Close()

	child := logger.With("run_id", "r-42")
	if child == nil {
		t.Fatal("With returned nil")
	}
	if child == logger {
		t.Fatal("With should return a new logger")
	}
	if child.exporter == nil {
		t.Error("child should share the exporter")
	}

	child.Info("child message")
	time.Sleep(50 * time.Millisecond)

	if len(exporter.Entries()) != 1 {
		t.Error("child logger should export through the shared exporter")
	}
}

func TestLogger_ConcurrentUse(t *testing.T) {
	exporter := NewBufferedExporter()
	logger := New(Config{Quiet: true, Exporter: exporter})
	defer logger.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			logger.Info("concurrent", "n", n)
		}(i)
	}
	wg.Wait()

	time.Sleep(100 * time.Millisecond)

	if got := len(exporter.Entries()); got != 10 {
		t.Errorf("expected 10 exported entries, got %d", got)
	}
}

// =============================================================================
// multiHandler Tests
// =============================================================================

func TestMultiHandler_FansOut(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewJSONHandler(&buf1, nil),
		slog.NewJSONHandler(&buf2, nil),
	}}

	logger := slog.New(h)
	logger.Info("fan out")

	if !strings.Contains(buf1.String(), "fan out") {
		t.Error("first handler did not receive the record")
	}
	if !strings.Contains(buf2.String(), "fan out") {
		t.Error("second handler did not receive the record")
	}
}

func TestMultiHandler_RespectsLevels(t *testing.T) {
	var debugBuf, warnBuf bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewJSONHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}}

	logger := slog.New(h)
	logger.Info("info only")

	if !strings.Contains(debugBuf.String(), "info only") {
		t.Error("debug handler should receive info records")
	}
	if warnBuf.Len() != 0 {
		t.Errorf("warn handler should filter info records, got %q", warnBuf.String())
	}
}

func TestMultiHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewJSONHandler(&buf, nil),
	}}

	withAttrs := h.WithAttrs([]slog.Attr{slog.String("service", "deltad")})
	slog.New(withAttrs).Info("attributed")

	if !strings.Contains(buf.String(), `"service":"deltad"`) {
		t.Errorf("expected service attribute, got %q", buf.String())
	}
}

// =============================================================================
// Helper Tests
// =============================================================================

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	if got := expandPath("~/logs"); got != filepath.Join(home, "logs") {
		t.Errorf("expandPath(~/logs) = %q", got)
	}
	if got := expandPath("/var/log"); got != "/var/log" {
		t.Errorf("expandPath(/var/log) = %q", got)
	}
	if got := expandPath("relative/path"); got != "relative/path" {
		t.Errorf("expandPath(relative/path) = %q", got)
	}
}

func TestArgsToMap(t *testing.T) {
	m := argsToMap([]any{"key1", "value1", "key2", 123})
	if m["key1"] != "value1" {
		t.Errorf("key1 = %v", m["key1"])
	}
	if m["key2"] != 123 {
		t.Errorf("key2 = %v", m["key2"])
	}

	// Trailing unpaired value is dropped
	m = argsToMap([]any{"key1", "value1", "dangling"})
	if len(m) != 1 {
		t.Errorf("expected 1 entry, got %d", len(m))
	}

	// Non-string keys are skipped
	m = argsToMap([]any{42, "value"})
	if len(m) != 0 {
		t.Errorf("expected empty map, got %v", m)
	}
}

// =============================================================================
// BufferedExporter Tests
// =============================================================================

func TestBufferedExporter_Collects(t *testing.T) {
	e := NewBufferedExporter()

	entry := LogEntry{Message: "hello", Level: LevelInfo, Timestamp: time.Now()}
	if err := e.Export(context.Background(), entry); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	entries := e.Entries()
	if len(entries) != 1 || entries[0].Message != "hello" {
		t.Errorf("unexpected entries %v", entries)
	}
}

func TestBufferedExporter_EntriesReturnsCopy(t *testing.T) {
	e := NewBufferedExporter()
	e.Export(context.Background(), LogEntry{Message: "original"})

	entries := e.Entries()
	entries[0].Message = "mutated"

	if e.Entries()[0].Message != "original" {
		t.Error("Entries() should return a copy")
	}
}

func TestBufferedExporter_FlushClose(t *testing.T) {
	e := NewBufferedExporter()
	if err := e.Flush(context.Background()); err != nil {
		t.Errorf("Flush() error = %v", err)
	}
	if err := e.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
