// Package service runs the agent under the host's service manager: signal
// handling on Unix, the Service Control Manager on Windows.
package service

import (
	"context"
	"errors"
)

// Name is the service and Event Log source name.
const Name = "VaaniAgent"

// Service defines the interface for platform-specific service management.
type Service interface {
	// Run starts the service. It blocks until the service is stopped.
	Run(ctx context.Context) error

	// Stop requests the service to stop.
	Stop() error

	// IsService returns true if running as a system service.
	IsService() bool
}

// RunFunc is the main function that runs the agent logic. It is expected to
// return once its context is cancelled.
type RunFunc func(ctx context.Context) error

// shutdownErr maps the cancellation that a requested stop causes to a clean exit.
func shutdownErr(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
