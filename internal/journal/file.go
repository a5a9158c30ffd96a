package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"vaaniagent/internal/config"
)

// FileSink appends events as JSON lines to a rotated file.
type FileSink struct {
	writer *lumberjack.Logger
	mu     sync.Mutex
	closed bool
}

// NewFileSink creates a FileSink, creating the parent directory if needed.
func NewFileSink(cfg config.JournalFileConfig) (*FileSink, error) {
	if cfg.FilePath == "" {
		return nil, fmt.Errorf("journal file path is empty")
	}
	if dir := filepath.Dir(cfg.FilePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	return &FileSink{
		writer: &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		},
	}, nil
}

// Record writes one event line.
func (s *FileSink) Record(_ context.Context, event *Event) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("sink is closed")
	}
	if _, err := s.writer.Write(line); err != nil {
		return fmt.Errorf("failed to write journal file: %w", err)
	}
	return nil
}

// Close closes the file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.writer.Close()
}
