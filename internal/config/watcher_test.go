package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"

	"vaaniagent/internal/logger"
)

func init() {
	_ = logger.Init(logger.Config{Level: "disabled"})
}

func TestFileWatcher_FiresOnCreate(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "user_token.json")
	fired := make(chan struct{}, 10)

	fw, err := NewFileWatcher(path, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewFileWatcher failed: %v", err)
	}
	if err := fw.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer fw.Stop()

	os.WriteFile(filepath.Join(filepath.Dir(path), "other.json"), []byte("{}"), 0644)
	os.WriteFile(path, []byte(`{"token":"abc"}`), 0644)

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("expected callback after file creation")
	}
}

func TestFileWatcher_StopIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	fw, err := NewFileWatcher(filepath.Join(t.TempDir(), "x.json"), nil)
	if err != nil {
		t.Fatalf("NewFileWatcher failed: %v", err)
	}
	if err := fw.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !fw.IsRunning() {
		t.Fatal("expected watcher to be running")
	}

	fw.Stop()
	fw.Stop()

	if fw.IsRunning() {
		t.Error("expected watcher to be stopped")
	}
}

func TestFileWatcher_MissingDirectory(t *testing.T) {
	fw, err := NewFileWatcher(filepath.Join(t.TempDir(), "nope", "x.json"), nil)
	if err != nil {
		t.Fatalf("NewFileWatcher failed: %v", err)
	}
	defer fw.Stop()

	if err := fw.Start(); err == nil {
		t.Fatal("expected Start to fail for a missing directory")
	}
	if fw.IsRunning() {
		t.Error("watcher should not be running after a failed Start")
	}
}

func TestLoggingWatcher_ReloadsConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Logging.json")
	os.WriteFile(path, []byte(`{"Level": "info"}`), 0644)

	reloaded := make(chan *logger.Config, 10)
	fw, err := NewLoggingWatcher(path, func(lc *logger.Config) {
		select {
		case reloaded <- lc:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewLoggingWatcher failed: %v", err)
	}
	if err := fw.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer fw.Stop()

	os.WriteFile(path, []byte(`{"Level": "debug"}`), 0644)

	deadline := time.After(3 * time.Second)
	for {
		select {
		case lc := <-reloaded:
			if lc.Level == "debug" {
				return
			}
		case <-deadline:
			t.Fatal("expected reloaded logging config with Level=debug")
		}
	}
}
