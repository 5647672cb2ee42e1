package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"shopgate/internal/models"
	"shopgate/internal/repositories"
)

// Shop count bounds at signup.
const (
	MinShops = 3
	MaxShops = 5
)

// ShopFinder is the part of the credential store the registry needs.
type ShopFinder interface {
	FindShopByName(ctx context.Context, name string) (*models.Shop, error)
}

// TenantRegistry maps users to the shops they own and guards shop-name uniqueness.
type TenantRegistry struct {
	shops ShopFinder
}

// NewTenantRegistry creates a new TenantRegistry.
func NewTenantRegistry(shops ShopFinder) *TenantRegistry {
	return &TenantRegistry{shops: shops}
}

// OwnsShop reports whether shopName is one of the user's stored shop names.
// The comparison is exact: names keep the case they were registered with.
func (r *TenantRegistry) OwnsShop(user *models.User, shopName string) bool {
	return slices.Contains(user.ShopNames(), shopName)
}

// MatchShop finds candidate among owned and returns the stored spelling.
// With foldCase the comparison ignores case, which is how host names behave;
// global uniqueness is case-insensitive so at most one stored name can match.
func (r *TenantRegistry) MatchShop(owned []string, candidate string, foldCase bool) (string, bool) {
	for _, name := range owned {
		if name == candidate || (foldCase && strings.EqualFold(name, candidate)) {
			return name, true
		}
	}
	return "", false
}

// NormalizeShopNames trims the requested names and enforces the count and
// case-insensitive uniqueness rules. The original casing is kept.
func (r *TenantRegistry) NormalizeShopNames(names []string) ([]string, error) {
	if len(names) < MinShops || len(names) > MaxShops {
		return nil, newError(ErrValidation, fmt.Sprintf("Provide %d–%d shop names", MinShops, MaxShops), nil)
	}

	normalized := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			return nil, newError(ErrValidation, "Shop names must not be empty", nil)
		}
		if len(trimmed) > 100 {
			return nil, newError(ErrValidation, fmt.Sprintf("Shop name %s is too long", trimmed), nil)
		}
		key := models.ShopKey(trimmed)
		if seen[key] {
			return nil, newError(ErrValidation, fmt.Sprintf("Shop name %s is listed more than once", trimmed), nil)
		}
		seen[key] = true
		normalized = append(normalized, trimmed)
	}
	return normalized, nil
}

// CheckAvailability checks every candidate before anything is inserted and
// reports the first name that is already reserved.
func (r *TenantRegistry) CheckAvailability(ctx context.Context, names []string) error {
	for _, name := range names {
		_, err := r.shops.FindShopByName(ctx, name)
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			continue
		case err != nil:
			return newError(ErrUnavailable, "Service temporarily unavailable, please retry", err)
		default:
			return newError(ErrConflict, fmt.Sprintf("Shop name %s already exists", name), nil)
		}
	}
	return nil
}
