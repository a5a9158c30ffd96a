package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"vaaniagent/internal/config"
)

func TestFileSink_WritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log", "journal.jsonl")
	sink, err := NewFileSink(config.JournalFileConfig{FilePath: path, MaxSizeMB: 1, MaxBackups: 1})
	if err != nil {
		t.Fatalf("NewFileSink failed: %v", err)
	}

	ctx := context.Background()
	sink.Record(ctx, &Event{Type: EventCommandExecuted, Command: "start_app", AgentID: "a", Timestamp: time.Now()})
	sink.Record(ctx, &Event{Type: EventCommandIgnored, Command: "shutdown_everything", AgentID: "a", Timestamp: time.Now()})
	sink.Close()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("invalid JSON line %q: %v", scanner.Text(), err)
		}
		events = append(events, e)
	}

	if len(events) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(events))
	}
	if events[1].Type != EventCommandIgnored || events[1].Command != "shutdown_everything" {
		t.Errorf("unexpected second event %+v", events[1])
	}
}

func TestFileSink_RecordAfterClose(t *testing.T) {
	sink, err := NewFileSink(config.JournalFileConfig{FilePath: filepath.Join(t.TempDir(), "j.jsonl")})
	if err != nil {
		t.Fatalf("NewFileSink failed: %v", err)
	}
	sink.Close()

	if err := sink.Record(context.Background(), &Event{Type: EventValidated}); err == nil {
		t.Fatal("expected error after Close")
	}
	if err := sink.Close(); err != nil {
		t.Errorf("second Close returned %v", err)
	}
}

func TestFileSink_EmptyPath(t *testing.T) {
	if _, err := NewFileSink(config.JournalFileConfig{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}
