package services

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/suggestor/internal/domain/mocks"
	"github.com/ersonp/suggestor/internal/domain/ports"
)

func TestTokenGate_Require(t *testing.T) {
	gate := NewTokenGate(&mocks.WikiAPI{}, zerolog.Nop())

	assert.ErrorIs(t, gate.Require(""), ports.ErrUnauthenticated)
	assert.ErrorIs(t, gate.Require(" \t"), ports.ErrUnauthenticated)
	assert.NoError(t, gate.Require("token"))
}

func TestTokenGate_Identify(t *testing.T) {
	tests := []struct {
		name      string
		token     string
		api       *mocks.WikiAPI
		wantName  string
		wantIn    bool
		wantErr   error
		wantCalls int
	}{
		{
			name:      "named user",
			token:     "tok",
			api:       &mocks.WikiAPI{Identity: ports.Identity{Name: "Alice"}},
			wantName:  "Alice",
			wantIn:    true,
			wantCalls: 1,
		},
		{
			name:      "anonymous session",
			token:     "tok",
			api:       &mocks.WikiAPI{Identity: ports.Identity{Anonymous: true}},
			wantCalls: 1,
		},
		{
			name:      "lookup failure",
			token:     "tok",
			api:       &mocks.WikiAPI{IdentityErr: errors.New("timeout")},
			wantErr:   errors.New("timeout"),
			wantCalls: 1,
		},
		{
			name:    "no token makes no call",
			token:   "",
			api:     &mocks.WikiAPI{Identity: ports.Identity{Name: "Alice"}},
			wantErr: ports.ErrUnauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewTokenGate(tt.api, zerolog.Nop())

			identity, err := gate.Identify(context.Background(), tt.token)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr.Error())
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantName, identity.Name)
			assert.Equal(t, tt.wantIn, identity.LoggedIn())
			assert.Equal(t, tt.wantCalls, tt.api.UsernameCalls)
		})
	}
}
