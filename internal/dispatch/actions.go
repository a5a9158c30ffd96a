package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"vaaniagent/internal/config"
	"vaaniagent/internal/logger"
)

// Built-in command labels.
const (
	CommandStartApp       = "start_app"
	CommandReadLog        = "read_log"
	CommandSyncSystemInfo = "sync_system_info"
)

// ErrNotConfigured is returned by actions whose target is not set in config.
var ErrNotConfigured = errors.New("action not configured")

// StartApp launches the configured application and lets it outlive the agent.
func StartApp(cfg config.StartAppConfig) Action {
	return func(ctx context.Context) error {
		if cfg.Path == "" {
			return fmt.Errorf("%s: %w", CommandStartApp, ErrNotConfigured)
		}

		cmd := exec.Command(cfg.Path, cfg.Args...)
		if err := cmd.Start(); err != nil {
			return fmt.Errorf("failed to start %s: %w", cfg.Path, err)
		}

		log := logger.WithComponent("dispatch")
		log.Info().
			Str("path", cfg.Path).
			Int("pid", cmd.Process.Pid).
			Msg("Application started")

		return cmd.Process.Release()
	}
}

// ReadLog logs the tail of the configured log file.
func ReadLog(cfg config.ReadLogConfig) Action {
	return func(ctx context.Context) error {
		if cfg.Path == "" {
			return fmt.Errorf("%s: %w", CommandReadLog, ErrNotConfigured)
		}

		maxBytes := cfg.MaxBytes
		if maxBytes <= 0 {
			maxBytes = config.DefaultReadLogBytes
		}

		tail, err := readTail(cfg.Path, maxBytes)
		if err != nil {
			return err
		}

		log := logger.WithComponent("dispatch")
		log.Info().
			Str("path", cfg.Path).
			Int("bytes", len(tail)).
			Str("tail", strings.TrimRight(string(tail), "\r\n")).
			Msg("Log tail")
		return nil
	}
}

// readTail returns at most maxBytes from the end of the file at path.
func readTail(path string, maxBytes int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}

	offset := info.Size() - maxBytes
	if offset < 0 {
		offset = 0
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek log file: %w", err)
	}

	return io.ReadAll(io.LimitReader(f, maxBytes))
}
