package models

import (
	"strings"
	"time"
)

// Shop is a global reservation of a tenant name owned by exactly one user.
type Shop struct {
	ID   string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name string `json:"name" gorm:"type:varchar(100);not null"`

	// NameKey is the case-folded name; its unique index enforces global uniqueness.
	NameKey string `json:"-" gorm:"uniqueIndex;type:varchar(100);not null"`

	// Owner is the owning username.
	Owner     string    `json:"owner" gorm:"index;type:varchar(100);not null"`
	Position  int       `json:"-" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at"`
}

// ShopKey folds a shop name into the form used for global uniqueness checks.
func ShopKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NewShops builds the shop reservations for an owner, preserving the given order.
func NewShops(owner string, names []string) []Shop {
	shops := make([]Shop, 0, len(names))
	for i, name := range names {
		shops = append(shops, Shop{
			Name:     name,
			NameKey:  ShopKey(name),
			Owner:    owner,
			Position: i,
		})
	}
	return shops
}
