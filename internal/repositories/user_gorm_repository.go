package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopgate/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultStoreTimeout bounds every store call when no timeout is configured.
const DefaultStoreTimeout = 5 * time.Second

// GORMCredentialStore is a GORM implementation of CredentialStore.
type GORMCredentialStore struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewGORMCredentialStore creates a new instance of GORMCredentialStore.
// The db should be opened with TranslateError enabled so unique violations
// surface as gorm.ErrDuplicatedKey, and without migration-time foreign keys
// since shops are reserved before their owner row exists (see database.Open).
func NewGORMCredentialStore(db *gorm.DB, timeout time.Duration) *GORMCredentialStore {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return &GORMCredentialStore{
		db:      db,
		timeout: timeout,
	}
}

// Migrate creates the users and shops tables.
func (r *GORMCredentialStore) Migrate() error {
	if err := r.db.AutoMigrate(&models.User{}, &models.Shop{}); err != nil {
		return fmt.Errorf("failed to migrate credential store: %w", err)
	}
	return nil
}

// FindUserByUsername retrieves a user and their shops, ordered by position.
func (r *GORMCredentialStore) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Shops", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&user, "username = ?", username).Error
	if err != nil {
		return nil, translate(err, fmt.Sprintf("user %s", username))
	}
	return &user, nil
}

// InsertUser stores the user row only; shops are written by InsertShops.
func (r *GORMCredentialStore) InsertUser(ctx context.Context, user *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.insertUser(r.db.WithContext(ctx), user)
}

// FindShopByName looks a shop up by its case-folded name.
func (r *GORMCredentialStore) FindShopByName(ctx context.Context, name string) (*models.Shop, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var shop models.Shop
	if err := r.db.WithContext(ctx).First(&shop, "name_key = ?", models.ShopKey(name)).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("shop %s", name))
	}
	return &shop, nil
}

// InsertShops reserves all given shop names in a single statement.
func (r *GORMCredentialStore) InsertShops(ctx context.Context, shops []models.Shop) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.insertShops(r.db.WithContext(ctx), shops)
}

// CreateAccount reserves the user's shops and then inserts the user inside one transaction.
func (r *GORMCredentialStore) CreateAccount(ctx context.Context, user *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.insertShops(tx, user.Shops); err != nil {
			return err
		}
		return r.insertUser(tx, user)
	})
	if err != nil && !isStoreError(err) {
		// begin or commit failed
		return translate(err, fmt.Sprintf("account %s", user.Username))
	}
	return err
}

func (r *GORMCredentialStore) insertUser(db *gorm.DB, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if err := db.Omit(clause.Associations).Create(user).Error; err != nil {
		return translate(err, fmt.Sprintf("user %s", user.Username))
	}
	return nil
}

func (r *GORMCredentialStore) insertShops(db *gorm.DB, shops []models.Shop) error {
	if len(shops) == 0 {
		return nil
	}
	for i := range shops {
		if shops[i].ID == "" {
			shops[i].ID = uuid.New().String()
		}
		shops[i].NameKey = models.ShopKey(shops[i].Name)
	}
	if err := db.Create(&shops).Error; err != nil {
		return translate(err, "shops")
	}
	return nil
}

func isStoreError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicate) || errors.Is(err, ErrUnavailable)
}

// translate maps GORM and driver errors onto the repository sentinels.
func translate(err error, what string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", what, ErrDuplicate)
	default:
		return fmt.Errorf("%s: %w: %v", what, ErrUnavailable, err)
	}
}
