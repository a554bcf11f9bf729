package log

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Mode != "console" {
		t.Errorf("expected mode 'console', got %q", cfg.Mode)
	}
	if cfg.Level != "info" {
		t.Errorf("expected level 'info', got %q", cfg.Level)
	}
	if cfg.Format != "text" {
		t.Errorf("expected format 'text', got %q", cfg.Format)
	}
	if cfg.FilePath != "spaauth.log" {
		t.Errorf("expected file path 'spaauth.log', got %q", cfg.FilePath)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestConsoleHandler_Formats(t *testing.T) {
	var text, js bytes.Buffer
	slog.New(NewConsoleHandler(&text, &Config{Format: "text"}, slog.LevelInfo)).Info("hello", "key", "value")
	slog.New(NewConsoleHandler(&js, &Config{Format: "json"}, slog.LevelInfo)).Info("hello", "key", "value")

	if !strings.Contains(text.String(), "key=value") {
		t.Errorf("expected text output with key=value, got %q", text.String())
	}
	if !strings.Contains(js.String(), `"key":"value"`) {
		t.Errorf("expected JSON output with key field, got %q", js.String())
	}
}

func TestConsoleHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewConsoleHandler(&buf, &Config{Format: "text"}, slog.LevelWarn))
	logger.Info("dropped")
	logger.Warn("kept")

	if strings.Contains(buf.String(), "dropped") {
		t.Error("info message should be filtered out at warn level")
	}
	if !strings.Contains(buf.String(), "kept") {
		t.Error("warn message should appear")
	}
}

func TestInit_FileMode(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "spaauth.log")
	cfg := &Config{Mode: "file", Level: "debug", Format: "text", FilePath: logPath, MaxSizeMB: 1}
	if err := Init(cfg); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() {
		Close()
		Init(DefaultConfig())
	})

	Debug("written to file", "n", 1)

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("expected log file to contain message, got %q", data)
	}
}

func TestInit_FileModeBadPath(t *testing.T) {
	if err := Init(&Config{Mode: "file"}); err == nil {
		t.Error("expected error when file path is empty")
	}
}

func TestLogger_NotNil(t *testing.T) {
	if err := Init(DefaultConfig()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if Logger() == nil {
		t.Fatal("expected logger")
	}
	if With("k", "v") == nil {
		t.Fatal("expected derived logger")
	}
}
