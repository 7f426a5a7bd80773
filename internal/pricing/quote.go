package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Engine chains the coupon evaluator, delivery resolver and total calculator.
type Engine struct {
	schedule       Schedule
	taxRatePercent decimal.Decimal
}

// NewEngine builds an Engine for a validated schedule and tax rate.
func NewEngine(schedule Schedule, taxRatePercent decimal.Decimal) (*Engine, error) {
	if len(schedule.bands) == 0 {
		return nil, fmt.Errorf("delivery schedule required")
	}
	if taxRatePercent.IsNegative() {
		return nil, fmt.Errorf("tax rate must not be negative")
	}
	return &Engine{schedule: schedule, taxRatePercent: taxRatePercent}, nil
}

// TaxRatePercent returns the configured GST rate.
func (e *Engine) TaxRatePercent() decimal.Decimal {
	return e.taxRatePercent
}

// QuoteInput is the checkout session handed to the engine.
type QuoteInput struct {
	Lines          []CartLine
	Coupon         *Coupon
	DistanceMeters *int
	Now            time.Time
}

// Quote is a fully priced cart.
type Quote struct {
	Subtotal       decimal.Decimal
	CouponCode     string
	Coupon         *Evaluation
	DiscountAmount decimal.Decimal
	DeliveryFee    Fee
	TaxRatePercent decimal.Decimal
	Totals         Totals
}

// Quote prices in. An inapplicable coupon is reported on the quote rather than failing it;
// delivery errors abort the quote.
func (e *Engine) Quote(in QuoteInput) (Quote, error) {
	if len(in.Lines) == 0 {
		return Quote{}, ErrEmptyCart
	}
	for _, line := range in.Lines {
		if line.Quantity < 1 {
			return Quote{}, fmt.Errorf("product %s: %w", line.ProductID, ErrInvalidQuantity)
		}
	}

	subtotal := Subtotal(in.Lines).Round(2)
	q := Quote{Subtotal: subtotal, DiscountAmount: decimal.Zero, TaxRatePercent: e.taxRatePercent}

	if in.Coupon != nil {
		eval := Evaluate(*in.Coupon, subtotal, in.Lines, in.Now)
		q.CouponCode = in.Coupon.Code
		q.Coupon = &eval
		if eval.Applicable {
			q.DiscountAmount = eval.DiscountAmount
		}
	}

	fee, err := e.schedule.Resolve(in.DistanceMeters, subtotal)
	if err != nil {
		return Quote{}, err
	}
	q.DeliveryFee = fee
	q.Totals = Compute(subtotal, q.DiscountAmount, fee.Amount, e.taxRatePercent)
	return q, nil
}

// ZoneFor names the delivery band covering meters, or "" when it is outside every band.
func (e *Engine) ZoneFor(meters int) string {
	band, ok := e.schedule.bandFor(meters)
	if !ok {
		return ""
	}
	return band.Label
}
