// Package journal records agent activity (validations, dispatched commands,
// system info syncs) to an optional audit sink.
package journal

import (
	"context"
	"time"

	"vaaniagent/internal/logger"
)

// Event types.
const (
	EventValidated            = "validated"
	EventValidationFailed     = "validation_failed"
	EventLoginRequired        = "login_required"
	EventCommandExecuted      = "command_executed"
	EventCommandFailed        = "command_failed"
	EventCommandIgnored       = "command_ignored"
	EventSystemInfoSynced     = "system_info_synced"
	EventSystemInfoSyncFailed = "system_info_sync_failed"
)

const recordTimeout = 5 * time.Second

// Event is a single journal record.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	AgentID   string    `json:"agent_id"`
	Hostname  string    `json:"hostname"`
	Command   string    `json:"command,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// Sink defines the interface for journal destinations.
type Sink interface {
	// Record stores one event.
	Record(ctx context.Context, event *Event) error

	// Close releases any resources held by the sink.
	Close() error
}

// NopSink discards every event. It is the default when no journal is configured.
type NopSink struct{}

// Record implements Sink.
func (NopSink) Record(context.Context, *Event) error { return nil }

// Close implements Sink.
func (NopSink) Close() error { return nil }

// Journal stamps events with the agent identity and forwards them to a Sink.
// Sink failures are logged and otherwise ignored.
type Journal struct {
	sink     Sink
	agentID  string
	hostname string
	now      func() time.Time
}

// New wraps sink. A nil sink behaves like NopSink.
func New(sink Sink, agentID, hostname string) *Journal {
	if sink == nil {
		sink = NopSink{}
	}
	return &Journal{
		sink:     sink,
		agentID:  agentID,
		hostname: hostname,
		now:      time.Now,
	}
}

// Record builds an event and hands it to the sink.
func (j *Journal) Record(ctx context.Context, eventType, command, detail string) {
	if j == nil {
		return
	}

	event := &Event{
		Type:      eventType,
		Timestamp: j.now().UTC(),
		AgentID:   j.agentID,
		Hostname:  j.hostname,
		Command:   command,
		Detail:    detail,
	}

	ctx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()

	if err := j.sink.Record(ctx, event); err != nil {
		log := logger.WithComponent("journal")
		log.Warn().Err(err).Str("event", eventType).Msg("Failed to record journal event")
	}
}

// Close closes the underlying sink.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	return j.sink.Close()
}
