package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlaceholderProductName is the display name used when a product cannot be resolved.
const PlaceholderProductName = "크루즈 상품"

// Product represents a cruise package in the catalogue.
type Product struct {
	ID            string              `json:"id" db:"id"`
	Slug          string              `json:"slug" db:"slug"`
	Name          string              `json:"name" db:"name"`
	NameKo        string              `json:"nameKo" db:"name_ko"`
	Price         decimal.Decimal     `json:"price" db:"price"`
	OriginalPrice decimal.NullDecimal `json:"originalPrice" db:"original_price"`
	Category      string              `json:"category" db:"category"`
	IsActive      bool                `json:"isActive" db:"is_active"`
	IsFeatured    bool                `json:"isFeatured" db:"is_featured"`
	CreatedAt     time.Time           `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time           `json:"updatedAt" db:"updated_at"`
}

// DisplayName returns the localised name, falling back to the default name
// and finally to the placeholder.
func (p *Product) DisplayName() string {
	switch {
	case p.NameKo != "":
		return p.NameKo
	case p.Name != "":
		return p.Name
	default:
		return PlaceholderProductName
	}
}

// Matches reports whether key is the product's ID or slug.
func (p *Product) Matches(key string) bool {
	return key != "" && (p.ID == key || p.Slug == key)
}
