package web

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	sessionKeySize = 32
	nonceSize      = 24
)

// ErrInvalidSession is returned for cookies that fail to decrypt or decode.
var ErrInvalidSession = errors.New("invalid session cookie")

// Session is the reviewer state kept in the encrypted cookie.
type Session struct {
	Token string `json:"t"`
	Name  string `json:"n,omitempty"`
}

// SessionCodec seals sessions into cookie values with NaCl secretbox.
type SessionCodec struct {
	key [sessionKeySize]byte
}

// NewSessionCodec creates a codec from a hex or base64 encoded 32-byte key.
func NewSessionCodec(encodedKey string) (*SessionCodec, error) {
	raw, err := decodeKey(strings.TrimSpace(encodedKey))
	if err != nil {
		return nil, err
	}
	codec := &SessionCodec{}
	copy(codec.key[:], raw)
	return codec, nil
}

// GenerateSessionKey returns a random hex-encoded session key.
func GenerateSessionKey() (string, error) {
	key := make([]byte, sessionKeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("generating session key: %w", err)
	}
	return hex.EncodeToString(key), nil
}

func decodeKey(s string) ([]byte, error) {
	if s == "" {
		return nil, errors.New("session key is required")
	}
	decoders := []func(string) ([]byte, error){
		hex.DecodeString,
		base64.StdEncoding.DecodeString,
		base64.RawURLEncoding.DecodeString,
	}
	for _, decode := range decoders {
		if raw, err := decode(s); err == nil && len(raw) == sessionKeySize {
			return raw, nil
		}
	}
	return nil, fmt.Errorf("session key must be %d bytes, hex or base64 encoded", sessionKeySize)
}

// Encode seals s into a URL-safe cookie value.
func (c *SessionCodec) Encode(s Session) (string, error) {
	plain, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshaling session: %w", err)
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], plain, &nonce, &c.key)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decode opens a cookie value produced by Encode.
func (c *SessionCodec) Decode(value string) (Session, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil || len(sealed) < nonceSize+secretbox.Overhead {
		return Session{}, ErrInvalidSession
	}

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &c.key)
	if !ok {
		return Session{}, ErrInvalidSession
	}

	var s Session
	if err := json.Unmarshal(plain, &s); err != nil {
		return Session{}, ErrInvalidSession
	}
	return s, nil
}
