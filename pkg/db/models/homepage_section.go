package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/crumbhouse/bakery-backend/pkg/enums"
)

// HomepageSection is one ordered block on the storefront landing page.
type HomepageSection struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title      string            `gorm:"column:title;not null"`
	Kind       enums.SectionKind `gorm:"column:kind;type:section_kind;not null"`
	Category   *string           `gorm:"column:category"`
	ProductIDs []string          `gorm:"column:product_ids;type:jsonb;serializer:json;not null"`
	Position   int               `gorm:"column:position;not null;default:0"`
	Visible    bool              `gorm:"column:visible;not null"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
