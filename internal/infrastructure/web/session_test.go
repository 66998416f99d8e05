package web

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T) *SessionCodec {
	t.Helper()
	key, err := GenerateSessionKey()
	require.NoError(t, err)
	codec, err := NewSessionCodec(key)
	require.NoError(t, err)
	return codec
}

func TestSessionCodec_RoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	value, err := codec.Encode(Session{Token: "secret-token", Name: "Alice"})
	require.NoError(t, err)
	assert.NotContains(t, value, "secret-token")

	sess, err := codec.Decode(value)
	require.NoError(t, err)
	assert.Equal(t, Session{Token: "secret-token", Name: "Alice"}, sess)

	other, err := codec.Encode(Session{Token: "secret-token", Name: "Alice"})
	require.NoError(t, err)
	assert.NotEqual(t, value, other, "each encoding uses a fresh nonce")
}

func TestSessionCodec_RejectsTampering(t *testing.T) {
	codec := newTestCodec(t)
	value, err := codec.Encode(Session{Token: "secret-token"})
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(value)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0x01
	tampered := base64.RawURLEncoding.EncodeToString(raw)

	for name, v := range map[string]string{
		"tampered":  tampered,
		"garbage":   "not-a-cookie!",
		"too short": "AAAA",
		"empty":     "",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := codec.Decode(v)
			require.ErrorIs(t, err, ErrInvalidSession)
		})
	}

	otherCodec := newTestCodec(t)
	_, err = otherCodec.Decode(value)
	require.ErrorIs(t, err, ErrInvalidSession)
}

func TestNewSessionCodec_KeyFormats(t *testing.T) {
	raw := []byte(strings.Repeat("k", 32))

	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{name: "hex", key: strings.Repeat("ab", 32)},
		{name: "base64", key: base64.StdEncoding.EncodeToString(raw)},
		{name: "base64url", key: base64.RawURLEncoding.EncodeToString(raw)},
		{name: "empty", key: "", wantErr: true},
		{name: "too short", key: "abcd", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSessionCodec(tt.key)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}
