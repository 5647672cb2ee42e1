package repositories

import (
	"context"
	"errors"

	"shopgate/internal/models"
)

var (
	// ErrNotFound is returned when a user or shop does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique username or shop name is already taken.
	ErrDuplicate = errors.New("duplicate record")
	// ErrUnavailable is returned when the store cannot be reached in time.
	ErrUnavailable = errors.New("credential store unavailable")
)

// CredentialStore defines the persistence interface for users and shop reservations.
type CredentialStore interface {
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	InsertUser(ctx context.Context, user *models.User) error
	FindShopByName(ctx context.Context, name string) (*models.Shop, error)
	InsertShops(ctx context.Context, shops []models.Shop) error
	// CreateAccount reserves user.Shops and then inserts the user as one unit.
	// Either everything is persisted or nothing is.
	CreateAccount(ctx context.Context, user *models.User) error
}
