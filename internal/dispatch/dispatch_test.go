package dispatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"vaaniagent/internal/config"
	"vaaniagent/internal/journal"
	"vaaniagent/internal/logger"
)

func init() {
	_ = logger.Init(logger.Config{Level: "disabled"})
}

type recordedEvent struct {
	eventType, command, detail string
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *fakeRecorder) Record(_ context.Context, eventType, command, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{eventType, command, detail})
}

func TestDispatch_KnownCommand(t *testing.T) {
	rec := &fakeRecorder{}
	d := New(rec)

	var calls int
	d.Register(CommandStartApp, func(context.Context) error {
		calls++
		return nil
	})

	d.Dispatch(context.Background(), CommandStartApp)

	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if len(rec.events) != 1 || rec.events[0].eventType != journal.EventCommandExecuted {
		t.Errorf("expected command_executed event, got %+v", rec.events)
	}
}

func TestDispatch_UnknownCommandIsNoop(t *testing.T) {
	rec := &fakeRecorder{}
	d := New(rec)

	var calls int
	d.Register(CommandReadLog, func(context.Context) error {
		calls++
		return nil
	})

	d.Dispatch(context.Background(), "shutdown_everything")

	if calls != 0 {
		t.Errorf("expected no action, got %d calls", calls)
	}
	if len(rec.events) != 1 || rec.events[0].eventType != journal.EventCommandIgnored {
		t.Fatalf("expected command_ignored event, got %+v", rec.events)
	}
	if rec.events[0].command != "shutdown_everything" {
		t.Errorf("expected ignored label to be recorded, got %q", rec.events[0].command)
	}
}

func TestDispatch_ActionFailureIsSwallowed(t *testing.T) {
	rec := &fakeRecorder{}
	d := New(rec)
	d.Register(CommandStartApp, func(context.Context) error {
		return errors.New("boom")
	})

	d.Dispatch(context.Background(), CommandStartApp)

	if len(rec.events) != 1 || rec.events[0].eventType != journal.EventCommandFailed {
		t.Fatalf("expected command_failed event, got %+v", rec.events)
	}
	if rec.events[0].detail != "boom" {
		t.Errorf("expected error detail, got %q", rec.events[0].detail)
	}
}

func TestDispatch_NilRecorder(t *testing.T) {
	d := New(nil)
	d.Dispatch(context.Background(), "anything")
}

func TestCommands_Sorted(t *testing.T) {
	d := New(nil)
	d.Register(CommandSyncSystemInfo, func(context.Context) error { return nil })
	d.Register(CommandReadLog, func(context.Context) error { return nil })
	d.Register(CommandStartApp, func(context.Context) error { return nil })

	got := strings.Join(d.Commands(), ",")
	if got != "read_log,start_app,sync_system_info" {
		t.Errorf("unexpected commands %q", got)
	}
}

func TestStartApp_NotConfigured(t *testing.T) {
	err := StartApp(config.StartAppConfig{})(context.Background())
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestStartApp_LaunchesProcess(t *testing.T) {
	// Re-run the test binary with a filter that matches nothing; it exits at once.
	cfg := config.StartAppConfig{Path: os.Args[0], Args: []string{"-test.run=^$"}}
	if err := StartApp(cfg)(context.Background()); err != nil {
		t.Fatalf("StartApp failed: %v", err)
	}
}

func TestStartApp_MissingBinary(t *testing.T) {
	cfg := config.StartAppConfig{Path: filepath.Join(t.TempDir(), "does-not-exist")}
	if err := StartApp(cfg)(context.Background()); err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func TestReadLog_NotConfigured(t *testing.T) {
	err := ReadLog(config.ReadLogConfig{})(context.Background())
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestReadLog_MissingFile(t *testing.T) {
	cfg := config.ReadLogConfig{Path: filepath.Join(t.TempDir(), "missing.log")}
	if err := ReadLog(cfg)(context.Background()); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestReadLog_ExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	os.WriteFile(path, []byte("line one\nline two\n"), 0644)

	if err := ReadLog(config.ReadLogConfig{Path: path})(context.Background()); err != nil {
		t.Fatalf("ReadLog failed: %v", err)
	}
}

func TestReadTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	content := strings.Repeat("x", 1000) + "TAIL"
	os.WriteFile(path, []byte(content), 0644)

	tail, err := readTail(path, 4)
	if err != nil {
		t.Fatalf("readTail failed: %v", err)
	}
	if string(tail) != "TAIL" {
		t.Errorf("expected %q, got %q", "TAIL", tail)
	}

	whole, err := readTail(path, 1<<20)
	if err != nil {
		t.Fatalf("readTail failed: %v", err)
	}
	if len(whole) != len(content) {
		t.Errorf("expected whole file (%d bytes), got %d", len(content), len(whole))
	}
}
