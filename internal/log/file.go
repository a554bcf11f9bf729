package log

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileHandler writes logs to a size-rotated file.
type FileHandler struct {
	slog.Handler
	out *lumberjack.Logger
}

// NewFileHandler creates a file handler with rotation.
func NewFileHandler(cfg *Config, level slog.Level) (*FileHandler, error) {
	if cfg.FilePath == "" {
		return nil, fmt.Errorf("log file path required")
	}
	// Ensure directory exists
	dir := filepath.Dir(cfg.FilePath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}

	out := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSizeMB,
		MaxAge:     cfg.MaxAgeDays,
		MaxBackups: cfg.MaxBackups,
	}
	return &FileHandler{
		Handler: newFormatHandler(out, cfg.Format, level),
		out:     out,
	}, nil
}

// Rotate closes the current file and starts a new one.
func (h *FileHandler) Rotate() error {
	return h.out.Rotate()
}

// Close closes the file handler.
func (h *FileHandler) Close() error {
	return h.out.Close()
}
