package coupons

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crumbhouse/bakery-backend/internal/pricing"
	"github.com/crumbhouse/bakery-backend/pkg/db/models"
	"github.com/crumbhouse/bakery-backend/pkg/enums"
)

// CouponDTO is the coupon payload returned to clients.
type CouponDTO struct {
	ID             uuid.UUID         `json:"id"`
	Code           string            `json:"code"`
	Description    *string           `json:"description,omitempty"`
	Kind           enums.CouponKind  `json:"kind"`
	Value          decimal.Decimal   `json:"value"`
	MinOrderAmount decimal.Decimal   `json:"min_order_amount"`
	MaxDiscountCap *decimal.Decimal  `json:"max_discount_cap,omitempty"`
	UsageLimit     *int              `json:"usage_limit,omitempty"`
	UsedCount      int               `json:"used_count"`
	ValidFrom      time.Time         `json:"valid_from"`
	ValidUntil     time.Time         `json:"valid_until"`
	Scope          enums.CouponScope `json:"scope"`
	ScopeRefs      []string          `json:"scope_refs"`
	IsActive       bool              `json:"is_active"`
}

// CouponInput is the admin payload to create a coupon.
type CouponInput struct {
	Code           string            `json:"code" validate:"required,max=40"`
	Description    *string           `json:"description,omitempty"`
	Kind           enums.CouponKind  `json:"kind" validate:"required,oneof=percentage flat"`
	Value          decimal.Decimal   `json:"value"`
	MinOrderAmount *decimal.Decimal  `json:"min_order_amount,omitempty"`
	MaxDiscountCap *decimal.Decimal  `json:"max_discount_cap,omitempty"`
	UsageLimit     *int              `json:"usage_limit,omitempty" validate:"omitempty,min=0"`
	ValidFrom      time.Time         `json:"valid_from" validate:"required"`
	ValidUntil     time.Time         `json:"valid_until" validate:"required"`
	Scope          enums.CouponScope `json:"scope,omitempty" validate:"omitempty,oneof=all category_set product_set"`
	ScopeRefs      []string          `json:"scope_refs,omitempty"`
	IsActive       *bool             `json:"is_active,omitempty"`
}

// UpdateCouponInput holds optional coupon mutations. The code is immutable.
type UpdateCouponInput struct {
	Description    *string            `json:"description,omitempty"`
	Value          *decimal.Decimal   `json:"value,omitempty"`
	MinOrderAmount *decimal.Decimal   `json:"min_order_amount,omitempty"`
	MaxDiscountCap *decimal.Decimal   `json:"max_discount_cap,omitempty"`
	UsageLimit     *int               `json:"usage_limit,omitempty" validate:"omitempty,min=0"`
	ValidFrom      *time.Time         `json:"valid_from,omitempty"`
	ValidUntil     *time.Time         `json:"valid_until,omitempty"`
	Scope          *enums.CouponScope `json:"scope,omitempty" validate:"omitempty,oneof=all category_set product_set"`
	ScopeRefs      *[]string          `json:"scope_refs,omitempty"`
	IsActive       *bool              `json:"is_active,omitempty"`
}

// ValidateRequest previews a coupon against a cart subtotal.
type ValidateRequest struct {
	CouponCode   string          `json:"coupon_code" validate:"required"`
	CartSubtotal decimal.Decimal `json:"cart_subtotal"`
}

// ValidateResponse reports the preview outcome.
type ValidateResponse struct {
	Applicable     bool            `json:"applicable"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Reason         pricing.Reason  `json:"reason,omitempty"`
}

func FromModel(c *models.Coupon) CouponDTO {
	refs := c.ScopeRefs
	if refs == nil {
		refs = []string{}
	}
	return CouponDTO{
		ID:             c.ID,
		Code:           c.Code,
		Description:    c.Description,
		Kind:           c.Kind,
		Value:          c.Value,
		MinOrderAmount: c.MinOrderAmount,
		MaxDiscountCap: c.MaxDiscountCap,
		UsageLimit:     c.UsageLimit,
		UsedCount:      c.UsedCount,
		ValidFrom:      c.ValidFrom,
		ValidUntil:     c.ValidUntil,
		Scope:          c.Scope,
		ScopeRefs:      refs,
		IsActive:       c.IsActive,
	}
}

// ToPricing converts a stored coupon into the evaluator's terms.
func ToPricing(c *models.Coupon) pricing.Coupon {
	return pricing.Coupon{
		Code:           c.Code,
		Kind:           c.Kind,
		Value:          c.Value,
		MinOrderAmount: c.MinOrderAmount,
		MaxDiscountCap: c.MaxDiscountCap,
		UsageLimit:     c.UsageLimit,
		UsedCount:      c.UsedCount,
		ValidFrom:      c.ValidFrom,
		ValidUntil:     c.ValidUntil,
		Scope:          c.Scope,
		ScopeRefs:      c.ScopeRefs,
	}
}
