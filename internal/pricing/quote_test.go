package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crumbhouse/bakery-backend/pkg/config"
	"github.com/crumbhouse/bakery-backend/pkg/enums"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(testSchedule(t, "0"), dec("5"))
	require.NoError(t, err)
	return engine
}

func TestQuoteChainsComponents(t *testing.T) {
	engine := testEngine(t)
	coupon := window(Coupon{Code: "CAKE10", Kind: enums.CouponKindPercentage, Value: dec("10"), MaxDiscountCap: decPtr("40")})
	lines := []CartLine{
		{ProductID: "p1", Category: "cakes", UnitPrice: dec("450"), Quantity: 1},
		{ProductID: "p2", Category: "breads", UnitPrice: dec("60"), Quantity: 2},
	}

	q, err := engine.Quote(QuoteInput{Lines: lines, Coupon: &coupon, DistanceMeters: intPtr(2500), Now: testNow})
	require.NoError(t, err)

	assert.True(t, q.Subtotal.Equal(dec("570")))
	require.NotNil(t, q.Coupon)
	assert.True(t, q.Coupon.Applicable)
	assert.True(t, q.DiscountAmount.Equal(dec("40")))
	assert.Equal(t, "near", q.DeliveryFee.ZoneLabel)
	assert.True(t, q.DeliveryFee.Amount.Equal(dec("30")))
	// 570 - 40 + 30 + 14.25 + 14.25
	assert.Equal(t, "588.50", q.Totals.Total.StringFixed(2))
}

func TestQuoteInapplicableCouponProceeds(t *testing.T) {
	engine := testEngine(t)
	coupon := window(Coupon{Code: "OLD", Kind: enums.CouponKindFlat, Value: dec("25")})
	lines := []CartLine{{ProductID: "p1", UnitPrice: dec("100"), Quantity: 1}}

	q, err := engine.Quote(QuoteInput{Lines: lines, Coupon: &coupon, DistanceMeters: intPtr(100), Now: testNow.Add(72 * time.Hour)})
	require.NoError(t, err)
	require.NotNil(t, q.Coupon)
	assert.False(t, q.Coupon.Applicable)
	assert.Equal(t, ReasonExpired, q.Coupon.Reason)
	assert.True(t, q.DiscountAmount.IsZero())
	assert.Equal(t, "OLD", q.CouponCode)
}

func TestQuoteMissingDistanceBlocks(t *testing.T) {
	engine := testEngine(t)
	_, err := engine.Quote(QuoteInput{
		Lines: []CartLine{{ProductID: "p1", UnitPrice: dec("100"), Quantity: 1}},
		Now:   testNow,
	})
	assert.ErrorIs(t, err, ErrMissingDistance)
}

func TestQuoteRejectsBadCarts(t *testing.T) {
	engine := testEngine(t)
	_, err := engine.Quote(QuoteInput{DistanceMeters: intPtr(10), Now: testNow})
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = engine.Quote(QuoteInput{
		Lines:          []CartLine{{ProductID: "p1", UnitPrice: dec("10"), Quantity: 0}},
		DistanceMeters: intPtr(10),
		Now:            testNow,
	})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestEngineFromConfig(t *testing.T) {
	var bands config.DeliveryBands
	require.NoError(t, bands.Decode("near:0-3000:30,city:3000-8000:50"))

	engine, err := EngineFromConfig(config.PricingConfig{
		TaxRatePercent:        dec("5"),
		DeliveryBands:         bands,
		FreeDeliveryThreshold: decimal.Zero,
	})
	require.NoError(t, err)
	assert.True(t, engine.TaxRatePercent().Equal(dec("5")))

	_, err = EngineFromConfig(config.PricingConfig{TaxRatePercent: dec("5")})
	assert.Error(t, err)
}

func TestEngineZoneFor(t *testing.T) {
	engine := testEngine(t)
	assert.Equal(t, "near", engine.ZoneFor(0))
	assert.Equal(t, "city", engine.ZoneFor(3000))
	assert.Equal(t, "", engine.ZoneFor(50000))
}
