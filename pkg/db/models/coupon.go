package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/crumbhouse/bakery-backend/pkg/enums"
)

// Coupon is a discount offer keyed by an upper-case code.
type Coupon struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code           string            `gorm:"column:code;not null;uniqueIndex"`
	Description    *string           `gorm:"column:description"`
	Kind           enums.CouponKind  `gorm:"column:kind;type:coupon_kind;not null"`
	Value          decimal.Decimal   `gorm:"column:value;type:numeric(12,2);not null"`
	MinOrderAmount decimal.Decimal   `gorm:"column:min_order_amount;type:numeric(12,2);not null;default:0"`
	MaxDiscountCap *decimal.Decimal  `gorm:"column:max_discount_cap;type:numeric(12,2)"`
	UsageLimit     *int              `gorm:"column:usage_limit"`
	UsedCount      int               `gorm:"column:used_count;not null;default:0"`
	ValidFrom      time.Time         `gorm:"column:valid_from;not null"`
	ValidUntil     time.Time         `gorm:"column:valid_until;not null"`
	Scope          enums.CouponScope `gorm:"column:scope;type:coupon_scope;not null;default:all"`
	ScopeRefs      []string          `gorm:"column:scope_refs;type:jsonb;serializer:json;not null"`
	IsActive       bool              `gorm:"column:is_active;not null"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt      gorm.DeletedAt    `gorm:"column:deleted_at;index"`
}
