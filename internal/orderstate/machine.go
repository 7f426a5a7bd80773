// Package orderstate enforces the fulfillment and payment lifecycle of an order.
package orderstate

import (
	"errors"
	"fmt"

	"github.com/crumbhouse/bakery-backend/pkg/enums"
)

var (
	// ErrInvalidTransition is matched by every rejected event.
	ErrInvalidTransition = errors.New("invalid order transition")
	// ErrOrderClosed is returned when delivery details change on a delivered or cancelled order.
	ErrOrderClosed = errors.New("order is closed")
	// ErrUnknownEvent is returned for events the machine does not define.
	ErrUnknownEvent = errors.New("unknown order event")
)

// State is the pair of axes an order moves along.
type State struct {
	Status  enums.OrderStatus
	Payment enums.PaymentStatus
}

func (s State) String() string {
	return fmt.Sprintf("%s/%s", s.Status, s.Payment)
}

// Initial is the state of a freshly placed order.
func Initial() State {
	return State{Status: enums.OrderStatusPendingPayment, Payment: enums.PaymentStatusPending}
}

// Effect is a bookkeeping write that accompanies a transition.
type Effect int

const (
	EffectNone Effect = iota
	EffectRecordPayment
	EffectRecordDelivery
	EffectRecordCancellation
)

// TransitionError describes a rejected event.
type TransitionError struct {
	From   State
	Event  enums.OrderEvent
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s not allowed from %s: %s", e.Event, e.From, e.Reason)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// Result is the outcome of applying an event.
type Result struct {
	From    State
	To      State
	Changed bool
	Effect  Effect
}

type rule struct {
	from        []enums.OrderStatus
	to          enums.OrderStatus
	payment     enums.PaymentStatus
	requirePaid bool
	forbidPaid  bool
	effect      Effect
}

var rules = map[enums.OrderEvent]rule{
	enums.OrderEventMarkPaid: {
		from:    []enums.OrderStatus{enums.OrderStatusPendingPayment},
		to:      enums.OrderStatusConfirmed,
		payment: enums.PaymentStatusPaid,
		effect:  EffectRecordPayment,
	},
	enums.OrderEventMarkPaymentFailed: {
		from:       []enums.OrderStatus{enums.OrderStatusPendingPayment},
		to:         enums.OrderStatusPendingPayment,
		payment:    enums.PaymentStatusFailed,
		forbidPaid: true,
	},
	enums.OrderEventStartPreparing: {
		from:        []enums.OrderStatus{enums.OrderStatusConfirmed},
		to:          enums.OrderStatusPreparing,
		requirePaid: true,
	},
	enums.OrderEventDispatch: {
		from: []enums.OrderStatus{enums.OrderStatusPreparing},
		to:   enums.OrderStatusOutForDelivery,
	},
	enums.OrderEventMarkDelivered: {
		from:   []enums.OrderStatus{enums.OrderStatusOutForDelivery},
		to:     enums.OrderStatusDelivered,
		effect: EffectRecordDelivery,
	},
	enums.OrderEventCancel: {
		from: []enums.OrderStatus{
			enums.OrderStatusPendingPayment,
			enums.OrderStatusConfirmed,
			enums.OrderStatusPreparing,
		},
		to:     enums.OrderStatusCancelled,
		effect: EffectRecordCancellation,
	},
}

// Apply runs event against current. Re-issuing an event whose target is the
// current state succeeds with Changed=false.
func Apply(current State, event enums.OrderEvent) (Result, error) {
	r, ok := rules[event]
	if !ok {
		return Result{}, fmt.Errorf("%q: %w", event, ErrUnknownEvent)
	}

	target := State{Status: r.to, Payment: current.Payment}
	if r.payment != "" {
		target.Payment = r.payment
	}
	if current == target {
		return Result{From: current, To: current}, nil
	}

	if !contains(r.from, current.Status) {
		return Result{}, &TransitionError{From: current, Event: event, Reason: "not reachable from " + string(current.Status)}
	}
	if r.requirePaid && current.Payment != enums.PaymentStatusPaid {
		return Result{}, &TransitionError{From: current, Event: event, Reason: "payment not received"}
	}
	if r.forbidPaid && current.Payment == enums.PaymentStatusPaid {
		return Result{}, &TransitionError{From: current, Event: event, Reason: "payment already received"}
	}

	return Result{From: current, To: target, Changed: true, Effect: r.effect}, nil
}

// Allowed lists the events that would change current, in lifecycle order.
func Allowed(current State) []enums.OrderEvent {
	order := []enums.OrderEvent{
		enums.OrderEventMarkPaid,
		enums.OrderEventMarkPaymentFailed,
		enums.OrderEventStartPreparing,
		enums.OrderEventDispatch,
		enums.OrderEventMarkDelivered,
		enums.OrderEventCancel,
	}
	out := make([]enums.OrderEvent, 0, len(order))
	for _, event := range order {
		res, err := Apply(current, event)
		if err == nil && res.Changed {
			out = append(out, event)
		}
	}
	return out
}

// CanEditDelivery reports whether ETA and courier details may still change.
func CanEditDelivery(status enums.OrderStatus) error {
	if status.IsTerminal() {
		return fmt.Errorf("%s: %w", status, ErrOrderClosed)
	}
	return nil
}

func contains(list []enums.OrderStatus, s enums.OrderStatus) bool {
	for _, candidate := range list {
		if candidate == s {
			return true
		}
	}
	return false
}
