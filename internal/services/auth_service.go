package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode"

	"shopgate/internal/models"
	"shopgate/internal/repositories"

	"github.com/go-playground/validator/v10"
)

// passwordSymbols is the punctuation set a password must draw at least one character from.
const passwordSymbols = "!@#$%^&*"

// EventAccountCreated is published after a successful signup.
const EventAccountCreated = "account.created"

// EventPublisher publishes domain events to downstream consumers.
type EventPublisher interface {
	PublishEvent(eventType string, payload interface{}) error
}

// SignupInput is the data required to create an account.
type SignupInput struct {
	Username  string   `json:"username" validate:"required,min=3,max=100"`
	Password  string   `json:"password" validate:"required,password"`
	ShopNames []string `json:"shops"`
}

// SigninInput is the data required to start a session.
type SigninInput struct {
	Username   string `json:"username" validate:"required"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"rememberMe"`
}

// SigninResult is returned on a successful signin.
type SigninResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	ShopNames []string  `json:"shopNames"`
}

// Session is an authenticated identity with its shop list freshly read from the store.
type Session struct {
	Username  string   `json:"username"`
	ShopNames []string `json:"shopNames"`
}

// AuthService handles signup, signin, session validation and logout.
type AuthService struct {
	store    repositories.CredentialStore
	hasher   PasswordHasher
	tokens   *TokenService
	registry *TenantRegistry
	events   EventPublisher
	validate *validator.Validate
}

// NewAuthService creates a new AuthService. events may be nil.
func NewAuthService(store repositories.CredentialStore, hasher PasswordHasher, tokens *TokenService, registry *TenantRegistry, events EventPublisher) *AuthService {
	v := validator.New()
	if err := v.RegisterValidation("password", validatePassword); err != nil {
		// Only fails on an empty tag name or nil func.
		panic(err)
	}
	return &AuthService{
		store:    store,
		hasher:   hasher,
		tokens:   tokens,
		registry: registry,
		events:   events,
		validate: v,
	}
}

// Signup validates the input, reserves the shop names and creates the user in one unit.
// It does not sign the user in.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) error {
	in.Username = strings.TrimSpace(in.Username)
	if err := s.validate.Struct(in); err != nil {
		return validationError(err)
	}
	shopNames, err := s.registry.NormalizeShopNames(in.ShopNames)
	if err != nil {
		return err
	}

	_, err = s.store.FindUserByUsername(ctx, in.Username)
	switch {
	case err == nil:
		return newError(ErrConflict, "Username already exists", nil)
	case !errors.Is(err, repositories.ErrNotFound):
		return storeError(err)
	}
	if err := s.registry.CheckAvailability(ctx, shopNames); err != nil {
		return err
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return newError(ErrInternal, "", err)
	}

	user := &models.User{
		Username:     in.Username,
		PasswordHash: digest,
		Shops:        models.NewShops(in.Username, shopNames),
	}
	if err := s.store.CreateAccount(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			// Lost a race against a concurrent signup for the same username or shop.
			return newError(ErrConflict, "Username or shop name already exists", err)
		}
		return storeError(err)
	}

	s.publishAccountCreated(user.Username, shopNames)
	return nil
}

// Signin verifies the credentials and issues a session token.
func (s *AuthService) Signin(ctx context.Context, in SigninInput) (*SigninResult, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	user, err := s.store.FindUserByUsername(ctx, in.Username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			s.hasher.VerifyMissing(in.Password)
			return nil, newError(ErrNotFound, InvalidCredentialsMessage, nil)
		}
		return nil, storeError(err)
	}
	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		return nil, newError(ErrBadCredentials, InvalidCredentialsMessage, nil)
	}

	token, expiresAt, err := s.tokens.Issue(user.Username, in.RememberMe)
	if err != nil {
		return nil, newError(ErrInternal, "", err)
	}
	return &SigninResult{
		Token:     token,
		ExpiresAt: expiresAt,
		ShopNames: user.ShopNames(),
	}, nil
}

// ValidateSession checks the token and returns the identity with its current shops.
// Errors are always of kind ErrUnauthenticated or ErrUnavailable.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, newError(ErrUnauthenticated, "No token provided", nil)
	}
	_, user, err := s.tokens.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	return &Session{
		Username:  user.Username,
		ShopNames: user.ShopNames(),
	}, nil
}

// Logout acknowledges a logout. Tokens are not tracked server-side, so the
// only effect is that the client discards its token.
func (s *AuthService) Logout(ctx context.Context) error {
	return nil
}

func (s *AuthService) publishAccountCreated(username string, shopNames []string) {
	if s.events == nil {
		return
	}
	payload := map[string]interface{}{
		"username":  username,
		"shopNames": shopNames,
	}
	if err := s.events.PublishEvent(EventAccountCreated, payload); err != nil {
		log.Printf("Warning: failed to publish %s event for user %s: %v", EventAccountCreated, username, err)
	}
}

func storeError(err error) error {
	if errors.Is(err, repositories.ErrUnavailable) {
		return newError(ErrUnavailable, "Service temporarily unavailable, please retry", err)
	}
	return newError(ErrInternal, "", err)
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return newError(ErrValidation, "Invalid input data", err)
	}
	e := verrs[0]
	var msg string
	switch {
	case e.Tag() == "password":
		msg = "Password must be 8+ characters with a number and special character"
	case e.Field() == "Username" && e.Tag() != "required":
		msg = "Username must be between 3 and 100 characters"
	default:
		msg = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return newError(ErrValidation, msg, err)
}

// validatePassword enforces 8–72 characters drawn from letters, digits and
// passwordSymbols, with at least one digit and one symbol. 72 bytes is bcrypt's input limit.
func validatePassword(fl validator.FieldLevel) bool {
	password := fl.Field().String()
	if len(password) < 8 || len(password) > 72 {
		return false
	}
	var hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case r > unicode.MaxASCII:
			return false
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSymbols, r):
			hasSymbol = true
		case unicode.IsLetter(r):
		default:
			return false
		}
	}
	return hasDigit && hasSymbol
}
