package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"shopgate/internal/models"

	"github.com/google/uuid"
)

// MockCredentialStore is an in-memory implementation of CredentialStore.
type MockCredentialStore struct {
	users map[string]models.User
	shops map[string]models.Shop // keyed by models.ShopKey
	mu    sync.RWMutex
}

// NewMockCredentialStore creates a new instance of MockCredentialStore.
func NewMockCredentialStore() *MockCredentialStore {
	return &MockCredentialStore{
		users: make(map[string]models.User),
		shops: make(map[string]models.Shop),
	}
}

// FindUserByUsername returns a copy of the stored user with its shops attached.
func (r *MockCredentialStore) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("user %s: %w: %v", username, ErrUnavailable, err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[username]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", username, ErrNotFound)
	}
	user.Shops = nil
	for _, shop := range r.shops {
		if shop.Owner == username {
			user.Shops = append(user.Shops, shop)
		}
	}
	return &user, nil
}

// InsertUser adds a user, failing with ErrDuplicate if the username exists.
func (r *MockCredentialStore) InsertUser(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("user %s: %w: %v", user.Username, ErrUnavailable, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertUserLocked(user)
}

// FindShopByName returns the reservation for name, compared case-insensitively.
func (r *MockCredentialStore) FindShopByName(ctx context.Context, name string) (*models.Shop, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("shop %s: %w: %v", name, ErrUnavailable, err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	shop, ok := r.shops[models.ShopKey(name)]
	if !ok {
		return nil, fmt.Errorf("shop %s: %w", name, ErrNotFound)
	}
	return &shop, nil
}

// InsertShops reserves every name or none of them.
func (r *MockCredentialStore) InsertShops(ctx context.Context, shops []models.Shop) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("shops: %w: %v", ErrUnavailable, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertShopsLocked(shops)
}

// CreateAccount checks every uniqueness constraint before writing anything.
func (r *MockCredentialStore) CreateAccount(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("user %s: %w: %v", user.Username, ErrUnavailable, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.Username]; ok {
		return fmt.Errorf("user %s: %w", user.Username, ErrDuplicate)
	}
	if err := r.insertShopsLocked(user.Shops); err != nil {
		return err
	}
	return r.insertUserLocked(user)
}

func (r *MockCredentialStore) insertUserLocked(user *models.User) error {
	if _, ok := r.users[user.Username]; ok {
		return fmt.Errorf("user %s: %w", user.Username, ErrDuplicate)
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	stored.Shops = nil
	r.users[user.Username] = stored
	return nil
}

func (r *MockCredentialStore) insertShopsLocked(shops []models.Shop) error {
	seen := make(map[string]bool, len(shops))
	for _, shop := range shops {
		key := models.ShopKey(shop.Name)
		if _, ok := r.shops[key]; ok || seen[key] {
			return fmt.Errorf("shop %s: %w", shop.Name, ErrDuplicate)
		}
		seen[key] = true
	}
	for i := range shops {
		if shops[i].ID == "" {
			shops[i].ID = uuid.New().String()
		}
		shops[i].NameKey = models.ShopKey(shops[i].Name)
		shops[i].CreatedAt = time.Now()
		r.shops[shops[i].NameKey] = shops[i]
	}
	return nil
}
