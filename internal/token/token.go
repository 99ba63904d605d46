// Package token issues and validates the HS256 bearer tokens carried by
// authenticated requests. Tokens are self-contained: validity depends only on
// the signature, the signing key and the embedded expiration.
package token

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is 1000*60*24 ms, i.e. 24 minutes.
const DefaultTTL = 24 * time.Minute

// MinKeyBytes is the smallest HMAC-SHA256 key accepted.
const MinKeyBytes = 32

var (
	// ErrInvalid is returned for any token that fails validation.
	ErrInvalid = errors.New("token: invalid")
	// ErrKey is returned when the configured secret is unusable.
	ErrKey = errors.New("token: invalid signing key")
)

// Subject is the principal data embedded at issuance.
type Subject struct {
	Identifier  string
	Permissions []string
}

// Claims is the validated content of a token.
type Claims struct {
	Subject     string
	Permissions []string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

type wireClaims struct {
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// Service signs and verifies tokens with a single symmetric key.
type Service struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService decodes the base64 secret and builds a Service.
// A non-positive ttl falls back to DefaultTTL.
func NewService(secret string, ttl time.Duration, opts ...Option) (*Service, error) {
	key, err := DecodeKey(secret)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Service{key: key, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DecodeKey turns the configured base64 secret into HMAC key bytes.
func DecodeKey(secret string) ([]byte, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: empty secret", ErrKey)
	}
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKey, err)
	}
	if len(key) < MinKeyBytes {
		return nil, fmt.Errorf("%w: need at least %d bytes, got %d", ErrKey, MinKeyBytes, len(key))
	}
	return key, nil
}

// TTL reports the configured token lifetime.
func (s *Service) TTL() time.Duration { return s.ttl }

// Issue signs a token for the subject.
func (s *Service) Issue(sub Subject) (string, error) {
	if sub.Identifier == "" {
		return "", errors.New("token: subject identifier required")
	}
	now := s.now()
	perms := sub.Permissions
	if perms == nil {
		perms = []string{}
	}
	claims := wireClaims{
		Permissions: perms,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub.Identifier,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Validate verifies signature, algorithm and expiration and returns the claims.
// Expired means exp <= now.
func (s *Service) Validate(raw string) (Claims, error) {
	if raw == "" {
		return Claims{}, fmt.Errorf("%w: empty token", ErrInvalid)
	}
	var wc wireClaims
	tok, err := jwt.ParseWithClaims(raw, &wc, func(t *jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !tok.Valid {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if wc.Subject == "" {
		return Claims{}, fmt.Errorf("%w: missing subject", ErrInvalid)
	}
	out := Claims{
		Subject:     wc.Subject,
		Permissions: append([]string(nil), wc.Permissions...),
		ExpiresAt:   wc.ExpiresAt.Time,
	}
	if wc.IssuedAt != nil {
		out.IssuedAt = wc.IssuedAt.Time
	}
	return out, nil
}

// IsValid reports whether raw validates and belongs to expectedIdentifier.
func (s *Service) IsValid(raw, expectedIdentifier string) bool {
	claims, err := s.Validate(raw)
	if err != nil {
		return false
	}
	return claims.Subject == expectedIdentifier
}
