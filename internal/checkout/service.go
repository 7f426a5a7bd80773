package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/crumbhouse/bakery-backend/internal/coupons"
	"github.com/crumbhouse/bakery-backend/internal/orders"
	"github.com/crumbhouse/bakery-backend/internal/orderstate"
	"github.com/crumbhouse/bakery-backend/internal/pricing"
	"github.com/crumbhouse/bakery-backend/pkg/db"
	"github.com/crumbhouse/bakery-backend/pkg/db/models"
	"github.com/crumbhouse/bakery-backend/pkg/enums"
	pkgerrors "github.com/crumbhouse/bakery-backend/pkg/errors"
	"github.com/crumbhouse/bakery-backend/pkg/logger"
	"github.com/crumbhouse/bakery-backend/pkg/metrics"
	"github.com/crumbhouse/bakery-backend/pkg/outbox"
	"github.com/crumbhouse/bakery-backend/pkg/outbox/payloads"
	"github.com/crumbhouse/bakery-backend/pkg/redis"
)

// Reasons attached to checkout failures and coupon reports.
const (
	ReasonMissingDistance    = "MISSING_DISTANCE"
	ReasonOutOfRange         = "OUT_OF_RANGE"
	ReasonProductUnavailable = "PRODUCT_UNAVAILABLE"
	ReasonUnknownVariant     = "UNKNOWN_VARIANT"

	ReasonUnknownCode pricing.Reason = "UNKNOWN_CODE"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLookup interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

type addressLookup interface {
	FindOwned(ctx context.Context, userID, id uuid.UUID) (*models.Address, error)
}

// Service prices carts and places orders.
type Service interface {
	Quote(ctx context.Context, userID uuid.UUID, req Request) (*QuoteResponse, error)
	Confirm(ctx context.Context, userID uuid.UUID, req Request) (*ConfirmResponse, error)
}

// ServiceParams wires checkout.
type ServiceParams struct {
	Tx           txRunner
	Engine       *pricing.Engine
	Products     productLookup
	Addresses    addressLookup
	Coupons      *coupons.Repository
	Orders       *orders.Repository
	OrderNumbers redis.OrderNumberSource
	Outbox       outbox.Emitter
	Metrics      *metrics.ShopMetrics
	Logger       *logger.Logger
	Currency     string
	Now          func() time.Time
}

type service struct {
	tx           txRunner
	engine       *pricing.Engine
	products     productLookup
	addresses    addressLookup
	coupons      *coupons.Repository
	orders       *orders.Repository
	orderNumbers redis.OrderNumberSource
	outbox       outbox.Emitter
	metrics      *metrics.ShopMetrics
	logg         *logger.Logger
	currency     string
	now          func() time.Time
}

func NewService(p ServiceParams) (Service, error) {
	switch {
	case p.Tx == nil:
		return nil, fmt.Errorf("tx runner required")
	case p.Engine == nil:
		return nil, fmt.Errorf("pricing engine required")
	case p.Products == nil:
		return nil, fmt.Errorf("product lookup required")
	case p.Addresses == nil:
		return nil, fmt.Errorf("address lookup required")
	case p.Coupons == nil:
		return nil, fmt.Errorf("coupon repository required")
	case p.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case p.OrderNumbers == nil:
		return nil, fmt.Errorf("order number source required")
	case p.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	}
	now := p.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		tx:           p.Tx,
		engine:       p.Engine,
		products:     p.Products,
		addresses:    p.Addresses,
		coupons:      p.Coupons,
		orders:       p.Orders,
		orderNumbers: p.OrderNumbers,
		outbox:       p.Outbox,
		metrics:      p.Metrics,
		logg:         p.Logger,
		currency:     p.Currency,
		now:          now,
	}, nil
}

// session is a cart priced against live catalog, address and coupon data.
type session struct {
	lines   []models.OrderLine
	address *models.Address
	coupon  *models.Coupon
	code    string
	quote   pricing.Quote
}

func (s *service) Quote(ctx context.Context, userID uuid.UUID, req Request) (*QuoteResponse, error) {
	sess, err := s.prepare(ctx, userID, req, s.now())
	if err != nil {
		return nil, err
	}
	return &QuoteResponse{Breakdown: s.breakdown(sess), Coupon: report(sess)}, nil
}

// Confirm places the order. The coupon use, the order row and its order.created
// event commit in one transaction. A coupon exhausted by a concurrent checkout
// is dropped and reported rather than failing the order.
func (s *service) Confirm(ctx context.Context, userID uuid.UUID, req Request) (*ConfirmResponse, error) {
	now := s.now()
	sess, err := s.prepare(ctx, userID, req, now)
	if err != nil {
		return nil, err
	}

	number, err := s.orderNumbers.NextOrderNumber(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate order number")
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if sess.coupon != nil && sess.quote.Coupon != nil && sess.quote.Coupon.Applicable {
			if err := s.coupons.WithTx(tx).Consume(ctx, sess.coupon.ID); err != nil {
				if !errors.Is(err, coupons.ErrUsageExhausted) {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "consume coupon")
				}
				if err := s.dropCoupon(sess, now); err != nil {
					return err
				}
			}
		}

		order = s.buildOrder(userID, number, sess)
		if err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order number already used")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: userID, Role: enums.UserRoleCustomer},
			OccurredAt:    now,
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      userID,
				TotalAmount: order.TotalAmount,
				CouponCode:  order.CouponCode,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncOrderCreated()
	if rep := report(sess); rep != nil && !rep.Applicable {
		s.metrics.IncCouponRejection(string(rep.Reason))
	}
	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"order_number": order.OrderNumber,
			"total_amount": order.TotalAmount.StringFixed(2),
		})
		s.logg.Info(logCtx, "order placed")
	}

	return &ConfirmResponse{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		TotalAmount: order.TotalAmount,
		Breakdown:   s.breakdown(sess),
		Coupon:      report(sess),
	}, nil
}

func (s *service) prepare(ctx context.Context, userID uuid.UUID, req Request, now time.Time) (*session, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if req.AddressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address_id is required")
	}

	lines, err := s.priceLines(ctx, req.Lines)
	if err != nil {
		return nil, err
	}

	addr, err := s.addresses.FindOwned(ctx, userID, req.AddressID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load address")
	}

	sess := &session{lines: lines, address: addr}
	var terms *pricing.Coupon
	if req.CouponCode != nil && strings.TrimSpace(*req.CouponCode) != "" {
		sess.code = coupons.NormalizeCode(*req.CouponCode)
		coupon, err := s.coupons.FindActiveByCode(ctx, sess.code)
		switch {
		case err == nil:
			sess.coupon = coupon
			converted := coupons.ToPricing(coupon)
			terms = &converted
		case !db.IsNotFound(err):
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load coupon")
		}
	}

	quote, err := s.engine.Quote(pricing.QuoteInput{
		Lines:          toCartLines(lines),
		Coupon:         terms,
		DistanceMeters: addr.DistanceMeters,
		Now:            now,
	})
	if err != nil {
		return nil, mapPricingError(err)
	}
	sess.quote = quote
	return sess, nil
}

// priceLines resolves each requested line against the catalog.
func (s *service) priceLines(ctx context.Context, in []LineInput) ([]models.OrderLine, error) {
	if len(in) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart has no lines")
	}
	ids := make([]uuid.UUID, 0, len(in))
	for _, line := range in {
		ids = append(ids, line.ProductID)
	}
	catalog, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}

	out := make([]models.OrderLine, 0, len(in))
	for _, line := range in {
		if line.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
				WithDetails(map[string]any{"product_id": line.ProductID.String()})
		}
		product, ok := catalog[line.ProductID]
		if !ok || !product.IsAvailable {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product unavailable").
				WithReason(ReasonProductUnavailable, map[string]any{"product_id": line.ProductID.String()})
		}
		variant, ok := product.Variant(strings.TrimSpace(line.VariantLabel))
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown variant").
				WithReason(ReasonUnknownVariant, map[string]any{
					"product_id":    line.ProductID.String(),
					"variant_label": line.VariantLabel,
				})
		}
		out = append(out, models.OrderLine{
			ProductID:    product.ID,
			Name:         product.Name,
			Category:     product.Category,
			VariantLabel: variant.Label,
			UnitPrice:    variant.Price,
			Quantity:     line.Quantity,
			LineTotal:    variant.Price.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2),
		})
	}
	return out, nil
}

// dropCoupon reprices the session without its coupon after the last use was taken.
func (s *service) dropCoupon(sess *session, now time.Time) error {
	quote, err := s.engine.Quote(pricing.QuoteInput{
		Lines:          toCartLines(sess.lines),
		DistanceMeters: sess.address.DistanceMeters,
		Now:            now,
	})
	if err != nil {
		return mapPricingError(err)
	}
	quote.CouponCode = sess.code
	quote.Coupon = &pricing.Evaluation{Reason: pricing.ReasonUsageExhausted}
	sess.quote = quote
	return nil
}

func (s *service) buildOrder(userID uuid.UUID, number int64, sess *session) *models.Order {
	q := sess.quote
	initial := orderstate.Initial()
	order := &models.Order{
		OrderNumber:    number,
		UserID:         userID,
		Lines:          sess.lines,
		Subtotal:       q.Subtotal,
		DiscountAmount: q.DiscountAmount.Round(2),
		DeliveryFee:    q.DeliveryFee.Amount,
		Cgst:           q.Totals.Cgst,
		Sgst:           q.Totals.Sgst,
		TaxAmount:      q.Totals.TaxAmount,
		TotalAmount:    q.Totals.Total,
		DeliveryAddress: models.AddressSnapshot{
			AddressID:      sess.address.ID,
			FullAddress:    sess.address.FullAddress,
			DistanceMeters: *sess.address.DistanceMeters,
			ZoneLabel:      q.DeliveryFee.ZoneLabel,
		},
		Status:        initial.Status,
		PaymentStatus: initial.Payment,
	}
	if sess.coupon != nil && q.Coupon != nil && q.Coupon.Applicable {
		code := sess.coupon.Code
		order.CouponCode = &code
		order.CouponSnapshot = &models.CouponSnapshot{
			Code:           sess.coupon.Code,
			Kind:           sess.coupon.Kind,
			Value:          sess.coupon.Value,
			MaxDiscountCap: sess.coupon.MaxDiscountCap,
		}
	}
	return order
}

func (s *service) breakdown(sess *session) Breakdown {
	q := sess.quote
	distance := 0
	if sess.address.DistanceMeters != nil {
		distance = *sess.address.DistanceMeters
	}
	return Breakdown{
		Lines:          sess.lines,
		Subtotal:       q.Subtotal,
		DiscountAmount: q.DiscountAmount.Round(2),
		ItemsTotal:     q.Totals.ItemsTotal,
		DeliveryFee:    q.DeliveryFee.Amount,
		ZoneLabel:      q.DeliveryFee.ZoneLabel,
		DistanceMeters: distance,
		TaxRatePercent: q.TaxRatePercent,
		Cgst:           q.Totals.Cgst,
		Sgst:           q.Totals.Sgst,
		TaxAmount:      q.Totals.TaxAmount,
		TotalAmount:    q.Totals.Total,
		Currency:       s.currency,
	}
}

func report(sess *session) *CouponReport {
	if sess.code == "" {
		return nil
	}
	if sess.quote.Coupon == nil {
		return &CouponReport{Code: sess.code, DiscountAmount: decimal.Zero, Reason: ReasonUnknownCode}
	}
	eval := sess.quote.Coupon
	return &CouponReport{
		Code:           sess.code,
		Applicable:     eval.Applicable,
		DiscountAmount: eval.DiscountAmount,
		Reason:         eval.Reason,
	}
}

func mapPricingError(err error) error {
	switch {
	case errors.Is(err, pricing.ErrMissingDistance):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "delivery distance unavailable for address").
			WithReason(ReasonMissingDistance, nil)
	case errors.Is(err, pricing.ErrOutOfRange):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "address is outside the delivery area").
			WithReason(ReasonOutOfRange, nil)
	case errors.Is(err, pricing.ErrEmptyCart), errors.Is(err, pricing.ErrInvalidQuantity):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "price cart")
	}
}

func toCartLines(lines []models.OrderLine) []pricing.CartLine {
	out := make([]pricing.CartLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, pricing.CartLine{
			ProductID:    line.ProductID.String(),
			Category:     line.Category,
			VariantLabel: line.VariantLabel,
			UnitPrice:    line.UnitPrice,
			Quantity:     line.Quantity,
		})
	}
	return out
}
