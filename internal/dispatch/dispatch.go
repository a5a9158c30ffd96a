// Package dispatch maps command labels received from the companion service
// to local actions.
package dispatch

import (
	"context"
	"sort"
	"sync"

	"vaaniagent/internal/journal"
	"vaaniagent/internal/logger"
)

// Action runs one local command.
type Action func(ctx context.Context) error

// Recorder receives activity events. *journal.Journal implements it.
type Recorder interface {
	Record(ctx context.Context, eventType, command, detail string)
}

// Dispatcher is a closed label to action mapping. Labels are registered at
// start-up; anything else is ignored.
type Dispatcher struct {
	mu      sync.RWMutex
	actions map[string]Action
	journal Recorder
}

// New creates an empty Dispatcher. rec may be nil.
func New(rec Recorder) *Dispatcher {
	return &Dispatcher{
		actions: make(map[string]Action),
		journal: rec,
	}
}

// Register binds label to action, replacing any previous binding.
func (d *Dispatcher) Register(label string, action Action) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.actions[label] = action
}

// Commands returns the registered labels in sorted order.
func (d *Dispatcher) Commands() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	labels := make([]string, 0, len(d.actions))
	for label := range d.actions {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Dispatch runs the action bound to command. Unknown labels and action
// failures are logged and never returned to the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, command string) {
	log := logger.WithComponent("dispatch")

	d.mu.RLock()
	action, ok := d.actions[command]
	d.mu.RUnlock()

	if !ok {
		log.Debug().Str("command", command).Msg("Ignoring unknown command")
		d.record(ctx, journal.EventCommandIgnored, command, "")
		return
	}

	log.Info().Str("command", command).Msg("Executing command")
	if err := action(ctx); err != nil {
		log.Error().Err(err).Str("command", command).Msg("Command failed")
		d.record(ctx, journal.EventCommandFailed, command, err.Error())
		return
	}

	log.Info().Str("command", command).Msg("Command completed")
	d.record(ctx, journal.EventCommandExecuted, command, "")
}

func (d *Dispatcher) record(ctx context.Context, eventType, command, detail string) {
	if d.journal != nil {
		d.journal.Record(ctx, eventType, command, detail)
	}
}
