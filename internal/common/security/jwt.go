package security

import (
	"errors"
	"strings"
	"time"

	"blog_api/internal/common"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL applies when Issue is called without a positive ttl.
const DefaultTokenTTL = 15 * time.Minute

var signingMethod = jwt.SigningMethodHS256

// TokenService issues and verifies HS256 bearer tokens whose subject is the
// user's email. It holds no mutable state and is safe for concurrent use.
type TokenService struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

type TokenOption func(*TokenService)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

func NewTokenService(key []byte, ttl time.Duration, opts ...TokenOption) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	s := &TokenService{key: key, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL is the configured lifetime for login tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs {sub: subject, exp: now+ttl, iat: now}.
func (s *TokenService) Issue(subject string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := s.now()
	token := jwt.NewWithClaims(signingMethod, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	})
	return token.SignedString(s.key)
}

// Verify returns the token's subject. It fails with common.ErrTokenMalformed,
// common.ErrTokenInvalidSignature or common.ErrTokenExpired.
func (s *TokenService) Verify(tokenString string) (string, error) {
	// The signature is checked before any claim is decoded so that a
	// tampered payload reports a bad signature rather than bad JSON.
	if err := s.verifySignature(tokenString); err != nil {
		return "", err
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (interface{}, error) { return s.key, nil },
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
		jwt.WithStrictDecoding(),
	)
	if err != nil {
		return "", classify(err)
	}
	if claims.Subject == "" {
		return "", common.ErrTokenMalformed
	}
	return claims.Subject, nil
}

func (s *TokenService) verifySignature(tokenString string) error {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return common.ErrTokenMalformed
	}
	// Strict decoding rejects non-zero padding bits in the final character,
	// which would otherwise decode to the same signature.
	sig, err := jwt.NewParser(jwt.WithStrictDecoding()).DecodeSegment(parts[2])
	if err != nil {
		return common.ErrTokenMalformed
	}
	if err := signingMethod.Verify(parts[0]+"."+parts[1], sig, s.key); err != nil {
		return common.ErrTokenInvalidSignature
	}
	return nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return common.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return common.ErrTokenInvalidSignature
	default:
		return common.ErrTokenMalformed
	}
}
