package agent

import (
	"context"
	"errors"
	"time"

	"github.com/benbjohnson/clock"

	"vaaniagent/internal/client"
	"vaaniagent/internal/logger"
)

// NoUpdates is the /check_updates sentinel for "nothing to do".
const NoUpdates = "No updates"

// DefaultPollInterval is the fixed wait between poll cycles.
const DefaultPollInterval = 10 * time.Second

// UpdateChecker is the /check_updates call.
type UpdateChecker interface {
	CheckUpdates(ctx context.Context, token string) (string, error)
}

// Dispatcher runs a command label.
type Dispatcher interface {
	Dispatch(ctx context.Context, command string)
}

// Poller queries the service at a fixed interval and forwards commands.
// The token is captured when the Poller is created and never changes.
type Poller struct {
	checker    UpdateChecker
	dispatcher Dispatcher
	token      string
	interval   time.Duration
	clock      clock.Clock
}

// NewPoller creates a Poller. A zero interval means DefaultPollInterval and a
// nil clock means the wall clock.
func NewPoller(checker UpdateChecker, dispatcher Dispatcher, token string, interval time.Duration, clk clock.Clock) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Poller{
		checker:    checker,
		dispatcher: dispatcher,
		token:      token,
		interval:   interval,
		clock:      clk,
	}
}

// Run polls until ctx is cancelled and then returns ctx.Err(). Every outcome
// of a cycle is followed by the same full interval.
func (p *Poller) Run(ctx context.Context) error {
	log := logger.WithComponent("poller")
	log.Info().Dur("interval", p.interval).Msg("Starting poll loop")

	for {
		if err := ctx.Err(); err != nil {
			log.Info().Msg("Poll loop stopped")
			return err
		}

		p.Poll(ctx)

		select {
		case <-ctx.Done():
			log.Info().Msg("Poll loop stopped")
			return ctx.Err()
		case <-p.clock.After(p.interval):
		}
	}
}

// Poll runs a single cycle. Failures are logged and swallowed.
func (p *Poller) Poll(ctx context.Context) {
	log := logger.WithComponent("poller")

	command, err := p.checker.CheckUpdates(ctx, p.token)
	if err != nil {
		var statusErr *client.StatusError
		switch {
		case ctx.Err() != nil:
		case errors.As(err, &statusErr):
			log.Warn().
				Int("status", statusErr.StatusCode).
				Str("body", statusErr.Body).
				Msg("Update check rejected")
		case errors.Is(err, client.ErrMalformedResponse):
			log.Warn().Err(err).Msg("Ignoring malformed update response")
		default:
			log.Error().Err(err).Msg("Update check failed")
		}
		return
	}

	switch command {
	case NoUpdates:
		log.Debug().Msg("No updates")
	case "":
		log.Debug().Msg("Ignoring empty command")
	default:
		log.Info().Str("command", command).Msg("Received command")
		p.dispatcher.Dispatch(ctx, command)
	}
}
