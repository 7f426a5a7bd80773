package pricing

import "errors"

// Reason names why a coupon was judged inapplicable.
type Reason string

const (
	ReasonExpired        Reason = "EXPIRED"
	ReasonUsageExhausted Reason = "USAGE_EXHAUSTED"
	ReasonMinOrderNotMet Reason = "MIN_ORDER_NOT_MET"
	ReasonScopeMismatch  Reason = "SCOPE_MISMATCH"
)

var (
	// ErrMissingDistance means the delivery address has no geocoded distance.
	ErrMissingDistance = errors.New("delivery distance unavailable")
	// ErrOutOfRange means the distance lies beyond every configured band.
	ErrOutOfRange = errors.New("delivery distance outside service area")
	// ErrEmptyCart is returned when a quote has no lines.
	ErrEmptyCart = errors.New("cart has no lines")
	// ErrInvalidQuantity is returned for lines with a quantity below one.
	ErrInvalidQuantity = errors.New("line quantity must be at least 1")
)
