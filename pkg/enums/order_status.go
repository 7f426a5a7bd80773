package enums

import "fmt"

// OrderStatus is the fulfillment state of an order.
type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPendingPayment,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further fulfillment events apply.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

// OrderEvent is an administrative action applied to an order.
type OrderEvent string

const (
	OrderEventMarkPaid          OrderEvent = "mark_paid"
	OrderEventMarkPaymentFailed OrderEvent = "mark_payment_failed"
	OrderEventStartPreparing    OrderEvent = "start_preparing"
	OrderEventDispatch          OrderEvent = "dispatch"
	OrderEventMarkDelivered     OrderEvent = "mark_delivered"
	OrderEventCancel            OrderEvent = "cancel"
)

var validOrderEvents = []OrderEvent{
	OrderEventMarkPaid,
	OrderEventMarkPaymentFailed,
	OrderEventStartPreparing,
	OrderEventDispatch,
	OrderEventMarkDelivered,
	OrderEventCancel,
}

func (e OrderEvent) String() string {
	return string(e)
}

// ParseOrderEvent converts raw input into an OrderEvent.
func ParseOrderEvent(value string) (OrderEvent, error) {
	for _, candidate := range validOrderEvents {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order event %q", value)
}
