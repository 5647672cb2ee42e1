package models

import (
	"sort"
	"time"
)

// User represents an account that owns one or more shops.
type User struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Username     string    `json:"username" gorm:"uniqueIndex;type:varchar(100);not null"`
	PasswordHash string    `json:"-" gorm:"type:varchar(255);not null"` // bcrypt digest, never serialized
	Shops        []Shop    `json:"-" gorm:"foreignKey:Owner;references:Username"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ShopNames returns the names of the user's shops in the order they were registered.
func (u *User) ShopNames() []string {
	shops := make([]Shop, len(u.Shops))
	copy(shops, u.Shops)
	sort.SliceStable(shops, func(i, j int) bool { return shops[i].Position < shops[j].Position })

	names := make([]string, 0, len(shops))
	for _, s := range shops {
		names = append(names, s.Name)
	}
	return names
}
