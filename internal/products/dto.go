package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crumbhouse/bakery-backend/pkg/db/models"
)

// VariantDTO is a purchasable variant as exposed over HTTP.
type VariantDTO struct {
	Label string          `json:"label" validate:"required,max=60"`
	Price decimal.Decimal `json:"price"`
}

// ProductDTO is the catalog payload returned to clients.
type ProductDTO struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	Slug        string       `json:"slug"`
	Category    string       `json:"category"`
	Description *string      `json:"description,omitempty"`
	ImageURL    *string      `json:"image_url,omitempty"`
	Variants    []VariantDTO `json:"variants"`
	IsAvailable bool         `json:"is_available"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func FromModel(p *models.Product) ProductDTO {
	variants := make([]VariantDTO, 0, len(p.Variants))
	for _, v := range p.Variants {
		variants = append(variants, VariantDTO{Label: v.Label, Price: v.Price})
	}
	return ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Category:    p.Category,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		Variants:    variants,
		IsAvailable: p.IsAvailable,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
