// Package agent runs the VaaniAgent lifecycle: load the token, log in when it
// is missing or rejected, validate it, then poll the companion service for
// commands until the context is cancelled.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"vaaniagent/internal/dispatch"
	"vaaniagent/internal/journal"
	"vaaniagent/internal/logger"
	"vaaniagent/internal/sysinfo"
)

var (
	// ErrMissingCredential means no token is available on disk or in memory.
	ErrMissingCredential = errors.New("no credential available")

	// ErrAuthRejected means the service did not accept the token.
	ErrAuthRejected = errors.New("token rejected")

	// ErrLoginFailed is the only fatal lifecycle error: login could not
	// produce an accepted token.
	ErrLoginFailed = errors.New("login failed")
)

const defaultMaxLoginAttempts = 3

// API is the subset of the companion service the agent needs.
// *client.Client implements it.
type API interface {
	TokenValidator
	UpdateChecker
	SyncSystemInfo(ctx context.Context, token string, info *sysinfo.SystemInfo) error
}

// CredentialLoader reads the persisted token.
type CredentialLoader interface {
	Load() (string, error)
}

// LoginPrompter runs one interactive login round-trip.
type LoginPrompter interface {
	Prompt(ctx context.Context) (string, error)
}

// Options wires an Agent.
type Options struct {
	API        API
	Store      CredentialLoader
	Login      LoginPrompter
	Dispatcher Dispatcher
	Journal    *journal.Journal
	Clock      clock.Clock

	PollInterval     time.Duration
	MaxLoginAttempts int
	SyncOnStart      bool

	// Collect builds the system info snapshot; sysinfo.Collect when nil.
	Collect func(ctx context.Context) (*sysinfo.SystemInfo, error)
}

// Agent holds the process-wide state: the accepted token and its collaborators.
type Agent struct {
	api        API
	store      CredentialLoader
	login      LoginPrompter
	dispatcher Dispatcher
	journal    *journal.Journal
	clock      clock.Clock
	collect    func(ctx context.Context) (*sysinfo.SystemInfo, error)

	pollInterval     time.Duration
	maxLoginAttempts int
	syncOnStart      bool

	mu    sync.RWMutex
	token string
}

// New creates an Agent.
func New(opts Options) *Agent {
	a := &Agent{
		api:              opts.API,
		store:            opts.Store,
		login:            opts.Login,
		dispatcher:       opts.Dispatcher,
		journal:          opts.Journal,
		clock:            opts.Clock,
		collect:          opts.Collect,
		pollInterval:     opts.PollInterval,
		maxLoginAttempts: opts.MaxLoginAttempts,
		syncOnStart:      opts.SyncOnStart,
	}
	if a.clock == nil {
		a.clock = clock.New()
	}
	if a.dispatcher == nil {
		a.dispatcher = dispatch.New(opts.Journal)
	}
	if a.collect == nil {
		a.collect = sysinfo.Collect
	}
	if a.maxLoginAttempts <= 0 {
		a.maxLoginAttempts = defaultMaxLoginAttempts
	}
	return a
}

// Token returns the accepted token, or "" before Authenticate succeeds.
func (a *Agent) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

func (a *Agent) setToken(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = token
}

// Validate checks token against the service.
func (a *Agent) Validate(ctx context.Context, token string) Result {
	return Validate(ctx, a.api, token)
}

// Authenticate loads the token and validates it, running the login flow each
// time the token is missing or rejected. It gives up with ErrLoginFailed when
// a login yields no token or after MaxLoginAttempts logins.
func (a *Agent) Authenticate(ctx context.Context) error {
	log := logger.WithComponent("agent")

	token, err := a.store.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read token, treating it as absent")
		token = ""
	}

	cause := ErrMissingCredential
	attempts := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if token == "" {
			a.journal.Record(ctx, journal.EventLoginRequired, "", cause.Error())
			if a.login == nil {
				return fmt.Errorf("%w: %w", ErrLoginFailed, cause)
			}
			if attempts >= a.maxLoginAttempts {
				log.Error().Int("attempts", attempts).Msg("Giving up after repeated login attempts")
				return fmt.Errorf("%w after %d attempts: %w", ErrLoginFailed, attempts, cause)
			}
			attempts++

			log.Info().Int("attempt", attempts).Msg("No valid token, starting login")
			token, err = a.login.Prompt(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("%w: %w", ErrLoginFailed, err)
			}
			if token == "" {
				return fmt.Errorf("%w: %w", ErrLoginFailed, ErrMissingCredential)
			}
		}

		result := a.Validate(ctx, token)
		if result == Valid {
			a.setToken(token)
			a.journal.Record(ctx, journal.EventValidated, "", "")
			return nil
		}

		a.journal.Record(ctx, journal.EventValidationFailed, "", result.String())
		log.Warn().Str("result", result.String()).Msg("Token not accepted, please log in again")
		cause = ErrAuthRejected
		token = ""
	}
}

// SyncSystemInfo sends one system info snapshot. The outcome is logged and
// journalled; the error is returned for one-shot callers.
func (a *Agent) SyncSystemInfo(ctx context.Context) error {
	log := logger.WithComponent("sysinfo")

	token := a.Token()
	if token == "" {
		return ErrMissingCredential
	}

	info, err := a.collect(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to collect system info")
		a.journal.Record(ctx, journal.EventSystemInfoSyncFailed, "", err.Error())
		return err
	}

	if err := a.api.SyncSystemInfo(ctx, token, info); err != nil {
		log.Error().Err(err).Msg("Failed to sync system info")
		a.journal.Record(ctx, journal.EventSystemInfoSyncFailed, "", err.Error())
		return err
	}

	log.Info().
		Str("os", info.OS).
		Str("processor", info.Processor).
		Str("ram", info.RAM).
		Msg("System info synced")
	a.journal.Record(ctx, journal.EventSystemInfoSynced, "", "")
	return nil
}

// Run authenticates, optionally syncs system info, then polls until ctx is
// cancelled. It returns ctx.Err() on shutdown and ErrLoginFailed when
// authentication cannot complete.
func (a *Agent) Run(ctx context.Context) error {
	if err := a.Authenticate(ctx); err != nil {
		return err
	}

	if a.syncOnStart {
		_ = a.SyncSystemInfo(ctx)
	}

	poller := NewPoller(a.api, a.dispatcher, a.Token(), a.pollInterval, a.clock)
	return poller.Run(ctx)
}
