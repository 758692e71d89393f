package emailtoken

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// TTL is how long an issued email-action token stays valid.
const TTL = 30 * time.Minute

// Purposes bind a token to the single action it authorizes.
const (
	PurposeConfirm     = "confirm"
	PurposeUnsubscribe = "unsubscribe"
)

var (
	// ErrExpired is returned when the token is past its TTL.
	ErrExpired = errors.New("emailtoken: token expired")
	// ErrMalformed is returned when the signature, structure, or claims are invalid.
	ErrMalformed = errors.New("emailtoken: malformed token")
)

// Claims is the signed payload of an email-action token.
type Claims struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	jwtlib.RegisteredClaims
}

// Codec signs and verifies time-limited credentials binding an email
// address to an intended action. Verification is a pure function of
// (token, clock, secret).
type Codec struct {
	secret []byte
	now    func() time.Time
}

// New creates a Codec. The secret must be non-empty.
func New(secret string) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("emailtoken: signing secret is required")
	}
	return &Codec{secret: []byte(secret), now: time.Now}, nil
}

// WithClock overrides the codec's clock. Intended for tests.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	clone := *c
	clone.now = now
	return &clone
}

// Issue produces a signed token for the given email and purpose,
// expiring TTL from now.
func (c *Codec) Issue(email, purpose string) (string, error) {
	now := c.now()
	claims := Claims{
		Email:   strings.ToLower(strings.TrimSpace(email)),
		Purpose: purpose,
		RegisteredClaims: jwtlib.RegisteredClaims{
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(TTL)),
		},
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Verify validates a token for the given purpose and returns the
// normalized email claim.
func (c *Codec) Verify(tokenStr, purpose string) (string, error) {
	token, err := jwtlib.ParseWithClaims(tokenStr, &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwtlib.WithTimeFunc(c.now))
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return "", ErrExpired
		}
		return "", ErrMalformed
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", ErrMalformed
	}
	if claims.Purpose != purpose {
		return "", ErrMalformed
	}
	email := strings.ToLower(strings.TrimSpace(claims.Email))
	if email == "" {
		return "", ErrMalformed
	}
	return email, nil
}
