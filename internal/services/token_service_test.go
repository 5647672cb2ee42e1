package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"shopgate/internal/models"
	"shopgate/internal/repositories"
	"shopgate/internal/services"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func storeWithAlice(t *testing.T) *repositories.MockCredentialStore {
	t.Helper()
	store := repositories.NewMockCredentialStore()
	require.NoError(t, store.CreateAccount(context.Background(), &models.User{
		Username:     "alice",
		PasswordHash: "x",
		Shops:        models.NewShops("alice", []string{"a", "b", "c"}),
	}))
	return store
}

func TestTokenService_RoundTrip(t *testing.T) {
	tokens := services.NewTokenService(storeWithAlice(t), testJWTSecret)

	token, expiresAt, err := tokens.Issue("alice", false)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(services.SessionTTL), expiresAt, 5*time.Second)

	claims, user, err := tokens.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, []string{"a", "b", "c"}, user.ShopNames())
}

func TestTokenService_Expiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tokens := services.NewTokenService(storeWithAlice(t), testJWTSecret).
		WithClock(func() time.Time { return now })

	token, _, err := tokens.Issue("alice", false)
	require.NoError(t, err)

	now = now.Add(29 * time.Minute)
	_, _, err = tokens.Validate(context.Background(), token)
	assert.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, _, err = tokens.Validate(context.Background(), token)
	assert.ErrorIs(t, err, services.ErrTokenExpired)
	assert.ErrorIs(t, err, services.ErrUnauthenticated)
}

func TestTokenService_RememberMeLivesLonger(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tokens := services.NewTokenService(storeWithAlice(t), testJWTSecret).
		WithClock(func() time.Time { return now })

	short, shortExp, err := tokens.Issue("alice", false)
	require.NoError(t, err)
	long, longExp, err := tokens.Issue("alice", true)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, shortExp.Sub(now))
	assert.Equal(t, 7*24*time.Hour, longExp.Sub(now))

	now = now.Add(6 * 24 * time.Hour)
	_, _, err = tokens.Validate(context.Background(), short)
	assert.ErrorIs(t, err, services.ErrTokenExpired)
	_, _, err = tokens.Validate(context.Background(), long)
	assert.NoError(t, err)
}

func TestTokenService_Rejections(t *testing.T) {
	store := storeWithAlice(t)
	tokens := services.NewTokenService(store, testJWTSecret)
	claims := services.Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}

	wrongSecret, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	require.NoError(t, err)
	otherAlg, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, services.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "alice"},
	}).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	ghost, _, err := services.NewTokenService(store, testJWTSecret).Issue("ghost", false)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"wrong secret", wrongSecret, services.ErrTokenBadSignature},
		{"unexpected algorithm", otherAlg, services.ErrTokenBadSignature},
		{"alg none", unsigned, services.ErrTokenBadSignature},
		{"malformed", "not.a.jwt", services.ErrTokenMalformed},
		{"empty", "", services.ErrTokenMalformed},
		{"missing expiry", noExpiry, services.ErrTokenMalformed},
		{"unknown subject", ghost, services.ErrUnknownSubject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tokens.Validate(context.Background(), tt.token)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, services.ErrUnauthenticated)
		})
	}
}

func TestTokenService_StoreUnavailable(t *testing.T) {
	store := new(MockCredentialStore)
	store.On("FindUserByUsername", mock.Anything, "alice").
		Return(nil, fmt.Errorf("user alice: %w", repositories.ErrUnavailable)).Once()
	tokens := services.NewTokenService(store, testJWTSecret)

	token, _, err := tokens.Issue("alice", false)
	require.NoError(t, err)
	_, _, err = tokens.Validate(context.Background(), token)
	assert.ErrorIs(t, err, services.ErrUnavailable)
	assert.NotErrorIs(t, err, services.ErrUnauthenticated)
}
