package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crumbhouse/bakery-backend/pkg/enums"
)

// OrderLine is a priced cart line frozen into an order.
type OrderLine struct {
	ProductID    uuid.UUID       `json:"product_id"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	VariantLabel string          `json:"variant_label"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int             `json:"quantity"`
	LineTotal    decimal.Decimal `json:"line_total"`
}

// CouponSnapshot records the coupon terms in force when the order was placed.
type CouponSnapshot struct {
	Code           string           `json:"code"`
	Kind           enums.CouponKind `json:"kind"`
	Value          decimal.Decimal  `json:"value"`
	MaxDiscountCap *decimal.Decimal `json:"max_discount_cap,omitempty"`
}

// AddressSnapshot is the delivery address copied at order creation.
type AddressSnapshot struct {
	AddressID      uuid.UUID `json:"address_id"`
	FullAddress    string    `json:"full_address"`
	DistanceMeters int       `json:"distance_meters"`
	ZoneLabel      string    `json:"zone_label,omitempty"`
}

// Order is a confirmed checkout. Financial columns are written once at creation.
type Order struct {
	ID                    uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber           int64               `gorm:"column:order_number;not null;uniqueIndex"`
	UserID                uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	Lines                 []OrderLine         `gorm:"column:lines;type:jsonb;serializer:json;not null"`
	Subtotal              decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DiscountAmount        decimal.Decimal     `gorm:"column:discount_amount;type:numeric(12,2);not null"`
	DeliveryFee           decimal.Decimal     `gorm:"column:delivery_fee;type:numeric(12,2);not null"`
	Cgst                  decimal.Decimal     `gorm:"column:cgst;type:numeric(12,2);not null"`
	Sgst                  decimal.Decimal     `gorm:"column:sgst;type:numeric(12,2);not null"`
	TaxAmount             decimal.Decimal     `gorm:"column:tax_amount;type:numeric(12,2);not null"`
	TotalAmount           decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	CouponCode            *string             `gorm:"column:coupon_code"`
	CouponSnapshot        *CouponSnapshot     `gorm:"column:coupon_snapshot;type:jsonb;serializer:json"`
	DeliveryAddress       AddressSnapshot     `gorm:"column:delivery_address;type:jsonb;serializer:json;not null"`
	Status                enums.OrderStatus   `gorm:"column:status;type:order_status;not null"`
	PaymentStatus         enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null"`
	EstimatedDeliveryTime *time.Time          `gorm:"column:estimated_delivery_time"`
	DeliveryPersonName    *string             `gorm:"column:delivery_person_name"`
	DeliveryPersonContact *string             `gorm:"column:delivery_person_contact"`
	PaidAt                *time.Time          `gorm:"column:paid_at"`
	DeliveredAt           *time.Time          `gorm:"column:delivered_at"`
	CancelledAt           *time.Time          `gorm:"column:cancelled_at"`
	CreatedAt             time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
