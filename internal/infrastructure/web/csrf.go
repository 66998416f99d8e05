package web

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrCSRF is returned when a review form token is missing or does not match.
var ErrCSRF = errors.New("missing or invalid CSRF token")

type csrfClaims struct {
	SessionHash string `json:"sth"`
	jwt.RegisteredClaims
}

// CSRF issues and checks short-lived tokens that bind a review form to one
// edit and one session.
type CSRF struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCSRF creates a CSRF signer.
func NewCSRF(secret string, ttl time.Duration) (*CSRF, error) {
	if len(secret) < 16 {
		return nil, errors.New("csrf secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CSRF{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue returns a token valid for reviewing editID with sessionToken.
func (c *CSRF) Issue(editID int64, sessionToken string) (string, error) {
	now := c.now()
	claims := &csrfClaims{
		SessionHash: hashToken(sessionToken),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(editID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("signing csrf token: %w", err)
	}
	return signed, nil
}

// Verify checks that raw was issued for editID and sessionToken and has not
// expired.
func (c *CSRF) Verify(raw string, editID int64, sessionToken string) error {
	if raw == "" {
		return ErrCSRF
	}

	var claims csrfClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithSubject(strconv.FormatInt(editID, 10)),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCSRF, err)
	}

	if subtle.ConstantTimeCompare([]byte(claims.SessionHash), []byte(hashToken(sessionToken))) != 1 {
		return fmt.Errorf("%w: session mismatch", ErrCSRF)
	}
	return nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
