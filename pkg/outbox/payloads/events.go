package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crumbhouse/bakery-backend/pkg/enums"
)

// OrderCreatedEvent is emitted once checkout commits an order.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber int64           `json:"order_number"`
	UserID      uuid.UUID       `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	CouponCode  *string         `json:"coupon_code,omitempty"`
}

// OrderStatusChangedEvent records an applied lifecycle event.
type OrderStatusChangedEvent struct {
	OrderID           uuid.UUID           `json:"order_id"`
	OrderNumber       int64               `json:"order_number"`
	Event             enums.OrderEvent    `json:"event"`
	FromStatus        enums.OrderStatus   `json:"from_status"`
	ToStatus          enums.OrderStatus   `json:"to_status"`
	FromPaymentStatus enums.PaymentStatus `json:"from_payment_status"`
	ToPaymentStatus   enums.PaymentStatus `json:"to_payment_status"`
}

// OrderDeliveryUpdatedEvent carries new delivery metadata for an order.
type OrderDeliveryUpdatedEvent struct {
	OrderID               uuid.UUID  `json:"order_id"`
	OrderNumber           int64      `json:"order_number"`
	EstimatedDeliveryTime *time.Time `json:"estimated_delivery_time,omitempty"`
	DeliveryPersonName    *string    `json:"delivery_person_name,omitempty"`
	DeliveryPersonContact *string    `json:"delivery_person_contact,omitempty"`
}
