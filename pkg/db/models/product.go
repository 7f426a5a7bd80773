package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductVariant is a purchasable size or flavour of a product.
type ProductVariant struct {
	Label string          `json:"label"`
	Price decimal.Decimal `json:"price"`
}

// Product is a catalog entry. Prices live on its variants.
type Product struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string           `gorm:"column:name;not null"`
	Slug        string           `gorm:"column:slug;not null;uniqueIndex"`
	Category    string           `gorm:"column:category;not null"`
	Description *string          `gorm:"column:description"`
	ImageURL    *string          `gorm:"column:image_url"`
	Variants    []ProductVariant `gorm:"column:variants;type:jsonb;serializer:json;not null"`
	IsAvailable bool             `gorm:"column:is_available;not null"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// Variant returns the variant labelled label. An empty label selects the first variant.
func (p *Product) Variant(label string) (ProductVariant, bool) {
	if len(p.Variants) == 0 {
		return ProductVariant{}, false
	}
	if label == "" {
		return p.Variants[0], true
	}
	for _, v := range p.Variants {
		if v.Label == label {
			return v, true
		}
	}
	return ProductVariant{}, false
}
