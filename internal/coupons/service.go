package coupons

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crumbhouse/bakery-backend/internal/pricing"
	"github.com/crumbhouse/bakery-backend/pkg/db"
	"github.com/crumbhouse/bakery-backend/pkg/db/models"
	"github.com/crumbhouse/bakery-backend/pkg/enums"
	pkgerrors "github.com/crumbhouse/bakery-backend/pkg/errors"
	"github.com/crumbhouse/bakery-backend/pkg/metrics"
)

var hundred = decimal.NewFromInt(100)

// Service exposes coupon previews and admin coupon management.
type Service interface {
	ListRedeemable(ctx context.Context) ([]CouponDTO, error)
	Validate(ctx context.Context, code string, subtotal decimal.Decimal, lines []pricing.CartLine) (*ValidateResponse, error)
	List(ctx context.Context) ([]CouponDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*CouponDTO, error)
	Create(ctx context.Context, input CouponInput) (*CouponDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateCouponInput) (*CouponDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type couponRepository interface {
	Create(ctx context.Context, coupon *models.Coupon) error
	Update(ctx context.Context, coupon *models.Coupon) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	FindActiveByCode(ctx context.Context, code string) (*models.Coupon, error)
	List(ctx context.Context) ([]models.Coupon, error)
	ListRedeemable(ctx context.Context, now time.Time) ([]models.Coupon, error)
}

// ServiceParams wires the coupon service.
type ServiceParams struct {
	Repo    couponRepository
	Metrics *metrics.ShopMetrics
	Now     func() time.Time
}

type service struct {
	repo    couponRepository
	metrics *metrics.ShopMetrics
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{repo: params.Repo, metrics: params.Metrics, now: now}, nil
}

func (s *service) ListRedeemable(ctx context.Context) ([]CouponDTO, error) {
	rows, err := s.repo.ListRedeemable(ctx, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list coupons")
	}
	return toDTOs(rows), nil
}

// Validate previews a code against a subtotal. Without cart lines the scope
// check is skipped; checkout enforces it against the priced cart.
func (s *service) Validate(ctx context.Context, code string, subtotal decimal.Decimal, lines []pricing.CartLine) (*ValidateResponse, error) {
	if strings.TrimSpace(code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon_code is required")
	}
	if subtotal.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart_subtotal must not be negative")
	}
	coupon, err := s.repo.FindActiveByCode(ctx, code)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load coupon")
	}

	terms := ToPricing(coupon)
	if len(lines) == 0 {
		terms.Scope = enums.CouponScopeAll
	}
	eval := pricing.Evaluate(terms, subtotal, lines, s.now())
	if !eval.Applicable {
		s.metrics.IncCouponRejection(string(eval.Reason))
	}
	return &ValidateResponse{
		Applicable:     eval.Applicable,
		DiscountAmount: eval.DiscountAmount,
		Reason:         eval.Reason,
	}, nil
}

func (s *service) List(ctx context.Context) ([]CouponDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list coupons")
	}
	return toDTOs(rows), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*CouponDTO, error) {
	coupon, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := FromModel(coupon)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, input CouponInput) (*CouponDTO, error) {
	code := NormalizeCode(input.Code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}
	scope := input.Scope
	if scope == "" {
		scope = enums.CouponScopeAll
	}
	minOrder := decimal.Zero
	if input.MinOrderAmount != nil {
		minOrder = *input.MinOrderAmount
	}
	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}

	coupon := &models.Coupon{
		Code:           code,
		Description:    input.Description,
		Kind:           input.Kind,
		Value:          input.Value.Round(2),
		MinOrderAmount: minOrder.Round(2),
		MaxDiscountCap: roundPtr(input.MaxDiscountCap),
		UsageLimit:     input.UsageLimit,
		ValidFrom:      input.ValidFrom.UTC(),
		ValidUntil:     input.ValidUntil.UTC(),
		Scope:          scope,
		ScopeRefs:      normalizeRefs(input.ScopeRefs),
		IsActive:       active,
	}
	if err := validateTerms(coupon); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, coupon); err != nil {
		return nil, mapWriteError(err, "create coupon")
	}
	dto := FromModel(coupon)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateCouponInput) (*CouponDTO, error) {
	coupon, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Description != nil {
		coupon.Description = input.Description
	}
	if input.Value != nil {
		coupon.Value = input.Value.Round(2)
	}
	if input.MinOrderAmount != nil {
		coupon.MinOrderAmount = input.MinOrderAmount.Round(2)
	}
	if input.MaxDiscountCap != nil {
		coupon.MaxDiscountCap = roundPtr(input.MaxDiscountCap)
	}
	if input.UsageLimit != nil {
		coupon.UsageLimit = input.UsageLimit
	}
	if input.ValidFrom != nil {
		coupon.ValidFrom = input.ValidFrom.UTC()
	}
	if input.ValidUntil != nil {
		coupon.ValidUntil = input.ValidUntil.UTC()
	}
	if input.Scope != nil {
		coupon.Scope = *input.Scope
	}
	if input.ScopeRefs != nil {
		coupon.ScopeRefs = normalizeRefs(*input.ScopeRefs)
	}
	if input.IsActive != nil {
		coupon.IsActive = *input.IsActive
	}

	if err := validateTerms(coupon); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, coupon); err != nil {
		return nil, mapWriteError(err, "update coupon")
	}
	dto := FromModel(coupon)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete coupon")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	coupon, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load coupon")
	}
	return coupon, nil
}

func validateTerms(c *models.Coupon) error {
	if !c.Kind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "kind must be percentage or flat")
	}
	if !c.Value.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "value must be greater than zero")
	}
	if c.Kind == enums.CouponKindPercentage && c.Value.GreaterThan(hundred) {
		return pkgerrors.New(pkgerrors.CodeValidation, "percentage value cannot exceed 100")
	}
	if c.MinOrderAmount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "min_order_amount must not be negative")
	}
	if c.MaxDiscountCap != nil && !c.MaxDiscountCap.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "max_discount_cap must be greater than zero")
	}
	if c.UsageLimit != nil && *c.UsageLimit < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "usage_limit must not be negative")
	}
	if c.ValidFrom.IsZero() || c.ValidUntil.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "valid_from and valid_until are required")
	}
	if !c.ValidUntil.After(c.ValidFrom) {
		return pkgerrors.New(pkgerrors.CodeValidation, "valid_until must be after valid_from")
	}
	if !c.Scope.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid scope")
	}
	if c.Scope != enums.CouponScopeAll && len(c.ScopeRefs) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "scope_refs required for a scoped coupon")
	}
	return nil
}

func mapWriteError(err error, action string) error {
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.New(pkgerrors.CodeConflict, "coupon code already exists")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, action)
}

func normalizeRefs(refs []string) []string {
	out := make([]string, 0, len(refs))
	seen := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		ref = strings.ToLower(strings.TrimSpace(ref))
		if ref == "" {
			continue
		}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	return out
}

func roundPtr(v *decimal.Decimal) *decimal.Decimal {
	if v == nil {
		return nil
	}
	rounded := v.Round(2)
	return &rounded
}

func toDTOs(rows []models.Coupon) []CouponDTO {
	out := make([]CouponDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out
}
