package checkout

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/crumbhouse/bakery-backend/internal/address"
	"github.com/crumbhouse/bakery-backend/internal/coupons"
	"github.com/crumbhouse/bakery-backend/internal/orders"
	"github.com/crumbhouse/bakery-backend/internal/pricing"
	"github.com/crumbhouse/bakery-backend/internal/products"
	"github.com/crumbhouse/bakery-backend/pkg/db"
	"github.com/crumbhouse/bakery-backend/pkg/db/dbtest"
	"github.com/crumbhouse/bakery-backend/pkg/db/models"
	"github.com/crumbhouse/bakery-backend/pkg/enums"
	pkgerrors "github.com/crumbhouse/bakery-backend/pkg/errors"
	"github.com/crumbhouse/bakery-backend/pkg/metrics"
	"github.com/crumbhouse/bakery-backend/pkg/outbox"
)

var testNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type counter struct {
	next   int64
	before func()
}

func (c *counter) NextOrderNumber(context.Context) (int64, error) {
	if c.before != nil {
		c.before()
	}
	c.next++
	return 1000 + c.next, nil
}

type fixture struct {
	conn      *gorm.DB
	svc       Service
	catalog   *products.Repository
	addresses *address.Repository
	coupons   *coupons.Repository
	numbers   *counter
	reg       *prometheus.Registry
	user      uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	schedule, err := pricing.NewSchedule([]pricing.Band{
		{Label: "near", MinMeters: 0, MaxMeters: 3000, BaseFee: decimal.NewFromInt(30)},
		{Label: "city", MinMeters: 3000, MaxMeters: 8000, BaseFee: decimal.NewFromInt(50)},
	}, decimal.Zero)
	require.NoError(t, err)
	engine, err := pricing.NewEngine(schedule, decimal.NewFromInt(5))
	require.NoError(t, err)

	f := &fixture{
		conn:      conn,
		catalog:   products.NewRepository(conn),
		addresses: address.NewRepository(conn),
		coupons:   coupons.NewRepository(conn),
		numbers:   &counter{},
		reg:       prometheus.NewRegistry(),
		user:      uuid.New(),
	}
	f.svc, err = NewService(ServiceParams{
		Tx:           db.Wrap(conn),
		Engine:       engine,
		Products:     f.catalog,
		Addresses:    f.addresses,
		Coupons:      f.coupons,
		Orders:       orders.NewRepository(conn),
		OrderNumbers: f.numbers,
		Outbox:       outbox.NewService(outbox.NewRepository(conn), nil),
		Metrics:      metrics.NewShopMetrics(f.reg),
		Currency:     "INR",
		Now:          func() time.Time { return testNow },
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) product(t *testing.T, name string, available bool) models.Product {
	t.Helper()
	p := models.Product{
		Name:        name,
		Slug:        products.Slugify(name),
		Category:    "cakes",
		Variants:    []models.ProductVariant{{Label: "500g", Price: decimal.NewFromInt(250)}},
		IsAvailable: available,
	}
	require.NoError(t, f.catalog.Create(context.Background(), &p))
	return p
}

func (f *fixture) addressAt(t *testing.T, meters *int) models.Address {
	t.Helper()
	a := models.Address{UserID: f.user, FullAddress: "8 Brigade Road", DistanceMeters: meters}
	require.NoError(t, f.addresses.Create(context.Background(), &a))
	return a
}

func (f *fixture) coupon(t *testing.T, code string, limit *int, used int) models.Coupon {
	t.Helper()
	capAmount := decimal.NewFromInt(40)
	c := models.Coupon{
		Code:           code,
		Kind:           enums.CouponKindPercentage,
		Value:          decimal.NewFromInt(10),
		MinOrderAmount: decimal.Zero,
		MaxDiscountCap: &capAmount,
		UsageLimit:     limit,
		UsedCount:      used,
		ValidFrom:      testNow.Add(-time.Hour),
		ValidUntil:     testNow.Add(time.Hour),
		Scope:          enums.CouponScopeAll,
		ScopeRefs:      []string{},
		IsActive:       true,
	}
	require.NoError(t, f.coupons.Create(context.Background(), &c))
	return c
}

func meters(v int) *int { return &v }

func codePtr(v string) *string { return &v }

func request(p models.Product, addr models.Address, qty int) Request {
	return Request{
		Lines:     []LineInput{{ProductID: p.ID, VariantLabel: "500g", Quantity: qty}},
		AddressID: addr.ID,
	}
}

func (f *fixture) countOrders(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&n).Error)
	return n
}

func TestQuotePricesFromCatalog(t *testing.T) {
	f := newFixture(t)
	cake := f.product(t, "Red Velvet", true)
	addr := f.addressAt(t, meters(2000))

	res, err := f.svc.Quote(context.Background(), f.user, request(cake, addr, 2))
	require.NoError(t, err)
	b := res.Breakdown
	assert.Equal(t, "500.00", b.Subtotal.StringFixed(2))
	assert.Equal(t, "30.00", b.DeliveryFee.StringFixed(2))
	assert.Equal(t, "near", b.ZoneLabel)
	assert.Equal(t, "12.50", b.Cgst.StringFixed(2))
	assert.Equal(t, "12.50", b.Sgst.StringFixed(2))
	assert.Equal(t, "555.00", b.TotalAmount.StringFixed(2))
	assert.Equal(t, "INR", b.Currency)
	require.Len(t, b.Lines, 1)
	assert.Equal(t, "Red Velvet", b.Lines[0].Name)
	assert.Nil(t, res.Coupon)
	assert.Zero(t, f.countOrders(t))
}

func TestConfirmPlacesOrderWithCoupon(t *testing.T) {
	f := newFixture(t)
	cake := f.product(t, "Black Forest", true)
	addr := f.addressAt(t, meters(2000))
	limit := 5
	coupon := f.coupon(t, "SAVE10", &limit, 0)

	req := request(cake, addr, 2)
	req.CouponCode = codePtr("save10")
	res, err := f.svc.Confirm(context.Background(), f.user, req)
	require.NoError(t, err)

	assert.Equal(t, int64(1001), res.OrderNumber)
	assert.Equal(t, "515.00", res.TotalAmount.StringFixed(2))
	require.NotNil(t, res.Coupon)
	assert.True(t, res.Coupon.Applicable)
	assert.Equal(t, "40.00", res.Coupon.DiscountAmount.StringFixed(2))

	var order models.Order
	require.NoError(t, f.conn.First(&order, "id = ?", res.OrderID).Error)
	assert.Equal(t, enums.OrderStatusPendingPayment, order.Status)
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
	require.NotNil(t, order.CouponCode)
	assert.Equal(t, "SAVE10", *order.CouponCode)
	require.NotNil(t, order.CouponSnapshot)
	assert.Equal(t, 2000, order.DeliveryAddress.DistanceMeters)
	assert.Equal(t, "near", order.DeliveryAddress.ZoneLabel)
	assert.True(t, order.DiscountAmount.Equal(decimal.NewFromInt(40)))

	stored, err := f.coupons.FindByID(context.Background(), coupon.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.UsedCount)

	var events []models.OutboxEvent
	require.NoError(t, f.conn.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventOrderCreated, events[0].EventType)
	assert.Equal(t, res.OrderID, events[0].AggregateID)

	expected := `
# HELP bakery_orders_created_total Orders placed through checkout.
# TYPE bakery_orders_created_total counter
bakery_orders_created_total 1
`
	require.NoError(t, testutil.GatherAndCompare(f.reg, strings.NewReader(expected), "bakery_orders_created_total"))
}

func TestConfirmRejectsMissingDistance(t *testing.T) {
	f := newFixture(t)
	cake := f.product(t, "Opera", true)
	addr := f.addressAt(t, nil)

	_, err := f.svc.Confirm(context.Background(), f.user, request(cake, addr, 1))
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Equal(t, ReasonMissingDistance, typed.Reason())
	assert.ErrorIs(t, err, pricing.ErrMissingDistance)
	assert.Zero(t, f.countOrders(t))
	assert.Zero(t, f.numbers.next)
}

func TestQuoteRejectsOutOfRange(t *testing.T) {
	f := newFixture(t)
	cake := f.product(t, "Tiramisu", true)
	addr := f.addressAt(t, meters(25000))

	_, err := f.svc.Quote(context.Background(), f.user, request(cake, addr, 1))
	require.Error(t, err)
	assert.Equal(t, ReasonOutOfRange, pkgerrors.As(err).Reason())
}

func TestInapplicableCouponProceedsWithoutDiscount(t *testing.T) {
	f := newFixture(t)
	cake := f.product(t, "Lemon Drizzle", true)
	addr := f.addressAt(t, meters(500))
	limit := 1
	f.coupon(t, "ONCE", &limit, 1)

	req := request(cake, addr, 1)
	req.CouponCode = codePtr("ONCE")
	res, err := f.svc.Confirm(context.Background(), f.user, req)
	require.NoError(t, err)
	require.NotNil(t, res.Coupon)
	assert.False(t, res.Coupon.Applicable)
	assert.Equal(t, pricing.ReasonUsageExhausted, res.Coupon.Reason)
	assert.True(t, res.Breakdown.DiscountAmount.IsZero())
	assert.Equal(t, "292.50", res.TotalAmount.StringFixed(2))

	var order models.Order
	require.NoError(t, f.conn.First(&order, "id = ?", res.OrderID).Error)
	assert.Nil(t, order.CouponCode)
}

func TestUnknownCouponIsReported(t *testing.T) {
	f := newFixture(t)
	cake := f.product(t, "Carrot Cake", true)
	addr := f.addressAt(t, meters(500))

	req := request(cake, addr, 1)
	req.CouponCode = codePtr("NOPE")
	res, err := f.svc.Quote(context.Background(), f.user, req)
	require.NoError(t, err)
	require.NotNil(t, res.Coupon)
	assert.Equal(t, ReasonUnknownCode, res.Coupon.Reason)
	assert.False(t, res.Coupon.Applicable)
}

func TestConcurrentlyExhaustedCouponIsDropped(t *testing.T) {
	f := newFixture(t)
	cake := f.product(t, "Pound Cake", true)
	addr := f.addressAt(t, meters(500))
	limit := 1
	coupon := f.coupon(t, "LAST", &limit, 0)
	f.numbers.before = func() {
		require.NoError(t, f.coupons.Consume(context.Background(), coupon.ID))
	}

	req := request(cake, addr, 2)
	req.CouponCode = codePtr("LAST")
	res, err := f.svc.Confirm(context.Background(), f.user, req)
	require.NoError(t, err)
	assert.False(t, res.Coupon.Applicable)
	assert.Equal(t, pricing.ReasonUsageExhausted, res.Coupon.Reason)
	assert.Equal(t, "555.00", res.TotalAmount.StringFixed(2))

	stored, err := f.coupons.FindByID(context.Background(), coupon.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.UsedCount)
}

func TestLineValidation(t *testing.T) {
	f := newFixture(t)
	soldOut := f.product(t, "Seasonal Stollen", false)
	cake := f.product(t, "Madeira", true)
	addr := f.addressAt(t, meters(500))
	ctx := context.Background()

	_, err := f.svc.Quote(ctx, f.user, request(soldOut, addr, 1))
	assert.Equal(t, ReasonProductUnavailable, pkgerrors.As(err).Reason())

	req := request(cake, addr, 1)
	req.Lines[0].VariantLabel = "2kg"
	_, err = f.svc.Quote(ctx, f.user, req)
	assert.Equal(t, ReasonUnknownVariant, pkgerrors.As(err).Reason())

	_, err = f.svc.Quote(ctx, f.user, Request{AddressID: addr.ID})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = f.svc.Quote(ctx, uuid.New(), request(cake, addr, 1))
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
