package pricing

import "github.com/shopspring/decimal"

var twoHundred = decimal.NewFromInt(200)

// Totals is the payable breakdown of an order.
type Totals struct {
	Cgst       decimal.Decimal
	Sgst       decimal.Decimal
	TaxAmount  decimal.Decimal
	ItemsTotal decimal.Decimal
	Total      decimal.Decimal
}

// Compute applies discount, delivery fee and the split GST to subtotal.
// Tax is levied on the undiscounted subtotal; the discount never pushes the item cost below zero.
func Compute(subtotal, discount, deliveryFee, taxRatePercent decimal.Decimal) Totals {
	half := subtotal.Mul(taxRatePercent).Div(twoHundred).Round(2)

	items := subtotal.Sub(discount)
	if items.IsNegative() {
		items = decimal.Zero
	}
	items = items.Round(2)
	fee := deliveryFee.Round(2)
	tax := half.Add(half)

	return Totals{
		Cgst:       half,
		Sgst:       half,
		TaxAmount:  tax,
		ItemsTotal: items,
		Total:      items.Add(fee).Add(tax),
	}
}
