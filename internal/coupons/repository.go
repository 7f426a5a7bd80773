package coupons

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/crumbhouse/bakery-backend/internal/repo"
	"github.com/crumbhouse/bakery-backend/pkg/db/models"
)

// ErrUsageExhausted is returned by Consume when the coupon has no uses left.
var ErrUsageExhausted = errors.New("coupon usage limit reached")

// Repository persists coupons.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return NewRepository(tx)
}

func (r *Repository) Create(ctx context.Context, coupon *models.Coupon) error {
	if coupon.ID == uuid.Nil {
		coupon.ID = uuid.New()
	}
	return r.DB(ctx).Create(coupon).Error
}

func (r *Repository) Update(ctx context.Context, coupon *models.Coupon) error {
	return r.DB(ctx).Save(coupon).Error
}

// Delete soft-deletes a coupon so orders keep a resolvable code history.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.DB(ctx).Delete(&models.Coupon{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.DB(ctx).First(&coupon, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}

// FindActiveByCode loads an active coupon by its normalized code.
func (r *Repository) FindActiveByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.DB(ctx).
		Where("code = ? AND is_active = ?", NormalizeCode(code), true).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// List returns every non-deleted coupon, newest first.
func (r *Repository) List(ctx context.Context) ([]models.Coupon, error) {
	var rows []models.Coupon
	err := r.DB(ctx).Order("created_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

// ListRedeemable returns active coupons whose window contains now and that still have uses left.
func (r *Repository) ListRedeemable(ctx context.Context, now time.Time) ([]models.Coupon, error) {
	var rows []models.Coupon
	err := r.DB(ctx).
		Where("is_active = ?", true).
		Where("valid_from <= ? AND valid_until >= ?", now, now).
		Where("usage_limit IS NULL OR used_count < usage_limit").
		Order("valid_until ASC").
		Find(&rows).Error
	return rows, err
}

// Consume takes one use of the coupon unless its limit is already reached.
func (r *Repository) Consume(ctx context.Context, id uuid.UUID) error {
	res := r.DB(ctx).
		Model(&models.Coupon{}).
		Where("id = ?", id).
		Where("usage_limit IS NULL OR used_count < usage_limit").
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUsageExhausted
	}
	return nil
}

// NormalizeCode is the canonical stored form of a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
