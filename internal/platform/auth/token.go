package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for every token rejection. The wrapped detail is
// for logs only.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the token payload: sub, type and exp.
type Claims struct {
	jwt.RegisteredClaims
	Type Kind `json:"type,omitempty"`
}

// TokenService signs and verifies access tokens with a shared HMAC secret.
type TokenService struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService builds a TokenService. algorithm must be one of HS256,
// HS384 or HS512.
func NewTokenService(secret []byte, algorithm string, ttl time.Duration) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret must not be empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}
	return &TokenService{secret: secret, method: method, ttl: ttl, now: time.Now}, nil
}

// Issue returns a signed token for subject of the given kind and its expiry.
func (s *TokenService) Issue(subject uuid.UUID, kind Kind) (string, time.Time, error) {
	exp := s.now().Add(s.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.String(),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Type: kind,
	}
	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify checks signature and expiry, then requires the token's kind to equal
// want. It returns the subject identifier.
func (s *TokenService) Verify(tokenStr string, want Kind) (uuid.UUID, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return uuid.Nil, fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}
	if claims.Type == "" {
		return uuid.Nil, fmt.Errorf("%w: missing type", ErrInvalidToken)
	}
	if claims.Type != want {
		return uuid.Nil, fmt.Errorf("%w: type %q, want %q", ErrInvalidToken, claims.Type, want)
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed sub", ErrInvalidToken)
	}
	return id, nil
}
