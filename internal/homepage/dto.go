package homepage

import (
	"github.com/google/uuid"

	"github.com/crumbhouse/bakery-backend/internal/products"
	"github.com/crumbhouse/bakery-backend/pkg/db/models"
	"github.com/crumbhouse/bakery-backend/pkg/enums"
)

// SectionDTO is the admin view of a section.
type SectionDTO struct {
	ID         uuid.UUID         `json:"id"`
	Title      string            `json:"title"`
	Kind       enums.SectionKind `json:"kind"`
	Category   *string           `json:"category,omitempty"`
	ProductIDs []string          `json:"product_ids"`
	Position   int               `json:"position"`
	Visible    bool              `json:"visible"`
}

// PublicSection is a visible section with its products resolved.
type PublicSection struct {
	ID       uuid.UUID             `json:"id"`
	Title    string                `json:"title"`
	Kind     enums.SectionKind     `json:"kind"`
	Category *string               `json:"category,omitempty"`
	Products []products.ProductDTO `json:"products"`
}

// SectionInput creates a section. Position defaults to the end of the page.
type SectionInput struct {
	Title      string            `json:"title" validate:"required,max=120"`
	Kind       enums.SectionKind `json:"kind" validate:"required,oneof=featured category banner"`
	Category   *string           `json:"category,omitempty" validate:"omitempty,max=80"`
	ProductIDs []string          `json:"product_ids,omitempty" validate:"omitempty,dive,uuid"`
	Visible    *bool             `json:"visible,omitempty"`
}

// UpdateSectionInput holds optional section mutations.
type UpdateSectionInput struct {
	Title      *string   `json:"title,omitempty" validate:"omitempty,max=120"`
	Category   *string   `json:"category,omitempty" validate:"omitempty,max=80"`
	ProductIDs *[]string `json:"product_ids,omitempty" validate:"omitempty,dive,uuid"`
	Visible    *bool     `json:"visible,omitempty"`
}

// ReorderInput lists every section id in the desired order.
type ReorderInput struct {
	SectionIDs []uuid.UUID `json:"section_ids" validate:"required,min=1"`
}

func FromModel(s *models.HomepageSection) SectionDTO {
	ids := s.ProductIDs
	if ids == nil {
		ids = []string{}
	}
	return SectionDTO{
		ID:         s.ID,
		Title:      s.Title,
		Kind:       s.Kind,
		Category:   s.Category,
		ProductIDs: ids,
		Position:   s.Position,
		Visible:    s.Visible,
	}
}
