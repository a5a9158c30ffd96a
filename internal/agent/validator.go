package agent

import (
	"context"
	"errors"

	"vaaniagent/internal/client"
	"vaaniagent/internal/logger"
)

// Result is the outcome of a token validation.
type Result int

const (
	// Invalid means the service rejected the token or answered unexpectedly.
	Invalid Result = iota
	// Valid means the service answered 200 with status "valid".
	Valid
	// NetworkError means the service could not be reached.
	NetworkError
)

func (r Result) String() string {
	switch r {
	case Valid:
		return "valid"
	case NetworkError:
		return "network_error"
	default:
		return "invalid"
	}
}

// TokenValidator is the /validate_token call.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*client.Validation, error)
}

// Validate asks the service whether token is accepted. Only a 200 response
// whose status is "valid" yields Valid.
func Validate(ctx context.Context, v TokenValidator, token string) Result {
	log := logger.WithComponent("validator")

	resp, err := v.ValidateToken(ctx, token)
	if err != nil {
		var statusErr *client.StatusError
		switch {
		case errors.As(err, &statusErr):
			log.Warn().
				Int("status", statusErr.StatusCode).
				Str("body", statusErr.Body).
				Msg("Token validation rejected")
			return Invalid
		case errors.Is(err, client.ErrTransport):
			log.Error().Err(err).Msg("Token validation failed: service unreachable")
			return NetworkError
		default:
			log.Warn().Err(err).Msg("Token validation returned a malformed response")
			return Invalid
		}
	}

	if !resp.Valid() {
		log.Warn().
			Str("status", resp.Status).
			Str("message", resp.Message).
			Msg("Token is not valid")
		return Invalid
	}

	log.Info().Msg("Token validated successfully")
	return Valid
}
