package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ersonp/suggestor/internal/domain/ports"
)

// TokenGate checks that privileged calls carry a bearer token. It never
// validates the token itself; the wiki does that on each call.
type TokenGate struct {
	api    ports.WikiAPI
	logger zerolog.Logger
}

// NewTokenGate creates a new TokenGate.
func NewTokenGate(api ports.WikiAPI, logger zerolog.Logger) *TokenGate {
	return &TokenGate{
		api:    api,
		logger: logger.With().Str("component", "token_gate").Logger(),
	}
}

// Require returns ErrUnauthenticated if no token was supplied.
func (g *TokenGate) Require(token string) error {
	if strings.TrimSpace(token) == "" {
		return ports.ErrUnauthenticated
	}
	return nil
}

// Identify resolves the token's owner. Anonymous sessions and failed lookups
// are kept apart here and in the logs; callers that only care whether
// someone is logged in should use Identity.LoggedIn.
func (g *TokenGate) Identify(ctx context.Context, token string) (ports.Identity, error) {
	if err := g.Require(token); err != nil {
		return ports.Identity{Anonymous: true}, err
	}

	identity, err := g.api.GetUsername(ctx, token)
	switch {
	case err != nil:
		level := g.logger.Warn()
		if errors.Is(err, context.Canceled) {
			level = g.logger.Debug()
		}
		level.Err(err).Msg("identity lookup failed")
		return ports.Identity{Anonymous: true}, err
	case identity.Anonymous:
		g.logger.Debug().Msg("token resolved to an anonymous session")
	}
	return identity, nil
}
