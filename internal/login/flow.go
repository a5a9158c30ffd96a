// Package login drives the out-of-band browser login and waits for the
// companion service to drop a fresh token on disk.
package login

import (
	"context"
	"errors"

	"github.com/pkg/browser"

	"vaaniagent/internal/logger"
)

// ErrNoToken is returned when the login wait ends but no token was written.
var ErrNoToken = errors.New("no token after login")

// TokenLoader reads the persisted token. credential.Store implements it.
type TokenLoader interface {
	Load() (string, error)
}

// Flow opens the login page, blocks on a Signal, then re-reads the token.
type Flow struct {
	loginURL string
	store    TokenLoader
	signal   Signal
	open     func(url string) error
}

// NewFlow creates a Flow that opens loginURL in the default browser.
func NewFlow(loginURL string, store TokenLoader, signal Signal) *Flow {
	return &Flow{
		loginURL: loginURL,
		store:    store,
		signal:   signal,
		open:     browser.OpenURL,
	}
}

// SetOpener replaces the browser launcher.
func (f *Flow) SetOpener(open func(url string) error) {
	f.open = open
}

// Prompt runs one login round-trip. It does not retry: a missing token after
// the signal yields ErrNoToken.
func (f *Flow) Prompt(ctx context.Context) (string, error) {
	log := logger.WithComponent("login")

	log.Info().Str("url", f.loginURL).Msg("Please log in through the browser")
	if f.open != nil {
		if err := f.open(f.loginURL); err != nil {
			log.Warn().Err(err).Str("url", f.loginURL).Msg("Failed to open browser, open the URL manually")
		}
	}

	if err := f.signal.Wait(ctx); err != nil {
		return "", err
	}

	token, err := f.store.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read token after login")
	}
	if token == "" {
		log.Error().Msg("Login failed: no token found")
		return "", ErrNoToken
	}

	log.Info().Msg("Login successful")
	return token, nil
}
