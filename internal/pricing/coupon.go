package pricing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crumbhouse/bakery-backend/pkg/enums"
)

var hundred = decimal.NewFromInt(100)

// CartLine is a priced line as seen by the engine.
type CartLine struct {
	ProductID    string
	Category     string
	VariantLabel string
	UnitPrice    decimal.Decimal
	Quantity     int
}

// Total is unitPrice * quantity.
func (l CartLine) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Subtotal sums every line total.
func Subtotal(lines []CartLine) decimal.Decimal {
	sum := decimal.Zero
	for _, line := range lines {
		sum = sum.Add(line.Total())
	}
	return sum
}

// Coupon carries the terms the evaluator needs. UsageLimit nil means unlimited.
type Coupon struct {
	Code           string
	Kind           enums.CouponKind
	Value          decimal.Decimal
	MinOrderAmount decimal.Decimal
	MaxDiscountCap *decimal.Decimal
	UsageLimit     *int
	UsedCount      int
	ValidFrom      time.Time
	ValidUntil     time.Time
	Scope          enums.CouponScope
	ScopeRefs      []string
}

// Evaluation is the outcome of checking a coupon against a cart.
type Evaluation struct {
	Applicable     bool
	DiscountAmount decimal.Decimal
	Reason         Reason
}

func rejected(reason Reason) Evaluation {
	return Evaluation{DiscountAmount: decimal.Zero, Reason: reason}
}

// Evaluate decides whether coupon applies to the cart and how much it takes off.
// Checks run in order: validity window, usage limit, minimum order, scope.
func Evaluate(coupon Coupon, subtotal decimal.Decimal, lines []CartLine, now time.Time) Evaluation {
	if now.Before(coupon.ValidFrom) || now.After(coupon.ValidUntil) {
		return rejected(ReasonExpired)
	}
	if coupon.UsageLimit != nil && coupon.UsedCount >= *coupon.UsageLimit {
		return rejected(ReasonUsageExhausted)
	}
	if subtotal.LessThan(coupon.MinOrderAmount) {
		return rejected(ReasonMinOrderNotMet)
	}
	if !inScope(coupon, lines) {
		return rejected(ReasonScopeMismatch)
	}

	var discount decimal.Decimal
	switch coupon.Kind {
	case enums.CouponKindPercentage:
		discount = subtotal.Mul(coupon.Value).Div(hundred)
		if coupon.MaxDiscountCap != nil && discount.GreaterThan(*coupon.MaxDiscountCap) {
			discount = *coupon.MaxDiscountCap
		}
	default:
		// flat discounts may exceed the subtotal; Compute clamps the item cost.
		discount = coupon.Value
	}

	return Evaluation{Applicable: true, DiscountAmount: discount.Round(2)}
}

func inScope(coupon Coupon, lines []CartLine) bool {
	if coupon.Scope == "" || coupon.Scope == enums.CouponScopeAll {
		return true
	}
	refs := make(map[string]struct{}, len(coupon.ScopeRefs))
	for _, ref := range coupon.ScopeRefs {
		refs[strings.ToLower(strings.TrimSpace(ref))] = struct{}{}
	}
	for _, line := range lines {
		var key string
		switch coupon.Scope {
		case enums.CouponScopeCategorySet:
			key = line.Category
		case enums.CouponScopeProductSet:
			key = line.ProductID
		}
		if _, ok := refs[strings.ToLower(strings.TrimSpace(key))]; ok && key != "" {
			return true
		}
	}
	return false
}
