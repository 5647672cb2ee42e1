package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopgate/internal/models"
	"shopgate/internal/repositories"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token lifetimes.
const (
	SessionTTL    = 30 * time.Minute
	RememberMeTTL = 7 * 24 * time.Hour
)

// Reasons a token is rejected. They are wrapped in an Error of kind ErrUnauthenticated.
var (
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenBadSignature = errors.New("token signature invalid")
	ErrTokenMalformed    = errors.New("token malformed")
	ErrUnknownSubject    = errors.New("token subject does not exist")
)

// Claims is the payload of a session token. It deliberately carries no shop list.
type Claims struct {
	jwt.RegisteredClaims
}

// UserFinder is the part of the credential store the token service needs.
type UserFinder interface {
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// TokenService issues and validates HS256 session tokens.
type TokenService struct {
	users  UserFinder
	secret []byte
	now    func() time.Time
}

// NewTokenService creates a new TokenService.
func NewTokenService(users UserFinder, secret string) *TokenService {
	return &TokenService{
		users:  users,
		secret: []byte(secret),
		now:    time.Now,
	}
}

// WithClock replaces the time source, mainly for tests.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// Issue signs a token for username valid for 30 minutes, or 7 days when rememberMe is set.
func (s *TokenService) Issue(username string, rememberMe bool) (string, time.Time, error) {
	ttl := SessionTTL
	if rememberMe {
		ttl = RememberMeTTL
	}
	issuedAt := s.now()
	expiresAt := issuedAt.Add(ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, expiresAt, nil
}

// Parse checks shape, signature and expiry without touching the store.
func (s *TokenService) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, newError(ErrUnauthenticated, "Invalid or expired token", classifyTokenError(err))
	}
	if !token.Valid || claims.Subject == "" {
		return nil, newError(ErrUnauthenticated, "Invalid or expired token", ErrTokenMalformed)
	}
	return claims, nil
}

// Validate parses the token and re-resolves its subject against the store.
func (s *TokenService) Validate(ctx context.Context, tokenString string) (*Claims, *models.User, error) {
	claims, err := s.Parse(tokenString)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.users.FindUserByUsername(ctx, claims.Subject)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return nil, nil, newError(ErrUnauthenticated, "Invalid or expired token", ErrUnknownSubject)
	case err != nil:
		return nil, nil, newError(ErrUnavailable, "Service temporarily unavailable, please retry", err)
	}
	return claims, user, nil
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrTokenBadSignature
	default:
		return ErrTokenMalformed
	}
}
