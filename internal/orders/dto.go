package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crumbhouse/bakery-backend/internal/orderstate"
	"github.com/crumbhouse/bakery-backend/pkg/db/models"
	"github.com/crumbhouse/bakery-backend/pkg/enums"
)

// OrderDTO is the order payload for customers and admins.
type OrderDTO struct {
	ID                    uuid.UUID              `json:"id"`
	OrderNumber           int64                  `json:"order_number"`
	UserID                uuid.UUID              `json:"user_id"`
	Lines                 []models.OrderLine     `json:"lines"`
	Subtotal              decimal.Decimal        `json:"subtotal"`
	DiscountAmount        decimal.Decimal        `json:"discount_amount"`
	DeliveryFee           decimal.Decimal        `json:"delivery_fee"`
	Cgst                  decimal.Decimal        `json:"cgst"`
	Sgst                  decimal.Decimal        `json:"sgst"`
	TaxAmount             decimal.Decimal        `json:"tax_amount"`
	TotalAmount           decimal.Decimal        `json:"total_amount"`
	CouponCode            *string                `json:"coupon_code,omitempty"`
	Coupon                *models.CouponSnapshot `json:"coupon,omitempty"`
	DeliveryAddress       models.AddressSnapshot `json:"delivery_address"`
	Status                enums.OrderStatus      `json:"status"`
	PaymentStatus         enums.PaymentStatus    `json:"payment_status"`
	EstimatedDeliveryTime *time.Time             `json:"estimated_delivery_time,omitempty"`
	DeliveryPersonName    *string                `json:"delivery_person_name,omitempty"`
	DeliveryPersonContact *string                `json:"delivery_person_contact,omitempty"`
	PaidAt                *time.Time             `json:"paid_at,omitempty"`
	DeliveredAt           *time.Time             `json:"delivered_at,omitempty"`
	CancelledAt           *time.Time             `json:"cancelled_at,omitempty"`
	AllowedEvents         []enums.OrderEvent     `json:"allowed_events,omitempty"`
	CreatedAt             time.Time              `json:"created_at"`
}

// ApplyEventInput is an admin lifecycle command.
type ApplyEventInput struct {
	OrderID   uuid.UUID
	Event     enums.OrderEvent
	ActorID   uuid.UUID
	ActorRole enums.UserRole
}

// TransitionResult reports the state after an admin event.
type TransitionResult struct {
	Success       bool                `json:"success"`
	Changed       bool                `json:"changed"`
	NewStatus     enums.OrderStatus   `json:"new_status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
}

// UpdateDeliveryInput carries optional delivery metadata.
type UpdateDeliveryInput struct {
	OrderID               uuid.UUID  `json:"-"`
	ActorID               uuid.UUID  `json:"-"`
	EstimatedDeliveryTime *time.Time `json:"estimated_delivery_time,omitempty"`
	DeliveryPersonName    *string    `json:"delivery_person_name,omitempty" validate:"omitempty,max=120"`
	DeliveryPersonContact *string    `json:"delivery_person_contact,omitempty" validate:"omitempty,max=40"`
}

// AdminListInput filters the back-office order list.
type AdminListInput struct {
	Status *enums.OrderStatus
	Limit  int
	Cursor string
}

func FromModel(o *models.Order) OrderDTO {
	lines := o.Lines
	if lines == nil {
		lines = []models.OrderLine{}
	}
	return OrderDTO{
		ID:                    o.ID,
		OrderNumber:           o.OrderNumber,
		UserID:                o.UserID,
		Lines:                 lines,
		Subtotal:              o.Subtotal,
		DiscountAmount:        o.DiscountAmount,
		DeliveryFee:           o.DeliveryFee,
		Cgst:                  o.Cgst,
		Sgst:                  o.Sgst,
		TaxAmount:             o.TaxAmount,
		TotalAmount:           o.TotalAmount,
		CouponCode:            o.CouponCode,
		Coupon:                o.CouponSnapshot,
		DeliveryAddress:       o.DeliveryAddress,
		Status:                o.Status,
		PaymentStatus:         o.PaymentStatus,
		EstimatedDeliveryTime: o.EstimatedDeliveryTime,
		DeliveryPersonName:    o.DeliveryPersonName,
		DeliveryPersonContact: o.DeliveryPersonContact,
		PaidAt:                o.PaidAt,
		DeliveredAt:           o.DeliveredAt,
		CancelledAt:           o.CancelledAt,
		CreatedAt:             o.CreatedAt,
	}
}

// adminView adds the events an admin may issue next.
func adminView(o *models.Order) OrderDTO {
	dto := FromModel(o)
	dto.AllowedEvents = orderstate.Allowed(stateOf(o))
	return dto
}

func stateOf(o *models.Order) orderstate.State {
	return orderstate.State{Status: o.Status, Payment: o.PaymentStatus}
}
