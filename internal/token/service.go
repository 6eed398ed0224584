package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ovaphlow/pitchfork/service-learning/pkg/config"
)

var (
	ErrTokenInvalid  = errors.New("token invalid")
	ErrTokenCreation = errors.New("token creation failed")
)

// Identity is what gets signed into an access token.
type Identity struct {
	UserID int64
	Email  string
	Role   string
}

// Claims is the access token claim set. Subject carries the decimal user id.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// UserID parses the subject. ok is false when it is not a positive integer.
func (c *Claims) UserID() (id int64, ok bool) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Service issues and verifies HMAC signed access tokens.
type Service struct {
	secret   []byte
	method   jwt.SigningMethod
	lifetime time.Duration
	issuer   string
	now      func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now for issuance and verification.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(cfg config.JWTConfig, opts ...Option) (*Service, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	method := jwt.GetSigningMethod(cfg.Algorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported jwt algorithm %q", cfg.Algorithm)
	}
	s := &Service{
		secret:   []byte(cfg.Secret),
		method:   method,
		lifetime: cfg.Lifetime(),
		issuer:   cfg.Issuer,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Lifetime is the default lifetime used by Issue.
func (s *Service) Lifetime() time.Duration { return s.lifetime }

func (s *Service) Issue(id Identity) (string, error) {
	return s.IssueWithLifetime(id, s.lifetime)
}

// IssueWithLifetime signs a token expiring lifetime from now. A zero or
// negative lifetime yields a token that is already expired.
func (s *Service) IssueWithLifetime(id Identity, lifetime time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		Email: id.Email,
		Role:  id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(id.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTokenCreation, err)
	}
	return signed, nil
}

// Verify checks signature, algorithm and expiry, and returns the claims.
func (s *Service) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
