package checkout

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crumbhouse/bakery-backend/internal/pricing"
	"github.com/crumbhouse/bakery-backend/pkg/db/models"
)

// LineInput is a cart line as sent by the client. Prices are looked up server-side.
type LineInput struct {
	ProductID    uuid.UUID `json:"product_id" validate:"required"`
	VariantLabel string    `json:"variant_label" validate:"required,max=60"`
	Quantity     int       `json:"quantity" validate:"required,min=1,max=100"`
}

// Request is shared by quote and confirmation.
type Request struct {
	Lines      []LineInput `json:"lines" validate:"required,min=1,max=50,dive"`
	CouponCode *string     `json:"coupon_code,omitempty" validate:"omitempty,max=40"`
	AddressID  uuid.UUID   `json:"address_id" validate:"required"`
}

// Breakdown is the priced view of a cart.
type Breakdown struct {
	Lines          []models.OrderLine `json:"lines"`
	Subtotal       decimal.Decimal    `json:"subtotal"`
	DiscountAmount decimal.Decimal    `json:"discount_amount"`
	ItemsTotal     decimal.Decimal    `json:"items_total"`
	DeliveryFee    decimal.Decimal    `json:"delivery_fee"`
	ZoneLabel      string             `json:"zone_label"`
	DistanceMeters int                `json:"distance_meters"`
	TaxRatePercent decimal.Decimal    `json:"tax_rate_percent"`
	Cgst           decimal.Decimal    `json:"cgst"`
	Sgst           decimal.Decimal    `json:"sgst"`
	TaxAmount      decimal.Decimal    `json:"tax_amount"`
	TotalAmount    decimal.Decimal    `json:"total_amount"`
	Currency       string             `json:"currency,omitempty"`
}

// CouponReport tells the client what happened to the code it sent.
type CouponReport struct {
	Code           string          `json:"code"`
	Applicable     bool            `json:"applicable"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Reason         pricing.Reason  `json:"reason,omitempty"`
}

// QuoteResponse is returned by the quote endpoint.
type QuoteResponse struct {
	Breakdown Breakdown     `json:"breakdown"`
	Coupon    *CouponReport `json:"coupon,omitempty"`
}

// ConfirmResponse is returned once an order is placed.
type ConfirmResponse struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber int64           `json:"order_number"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Breakdown   Breakdown       `json:"breakdown"`
	Coupon      *CouponReport   `json:"coupon,omitempty"`
}
