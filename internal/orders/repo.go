package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/crumbhouse/bakery-backend/internal/orderstate"
	"github.com/crumbhouse/bakery-backend/internal/repo"
	"github.com/crumbhouse/bakery-backend/pkg/db/models"
	"github.com/crumbhouse/bakery-backend/pkg/enums"
	"github.com/crumbhouse/bakery-backend/pkg/pagination"
)

// ErrStaleOrder is returned when a conditional update matched no row because
// the order moved on since it was read.
var ErrStaleOrder = errors.New("order state changed concurrently")

// ListFilter narrows order listings. A nil UserID lists every customer's orders.
type ListFilter struct {
	UserID *uuid.UUID
	Status *enums.OrderStatus
	Cursor *pagination.Cursor
	Limit  int
}

// Repository persists orders.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

func (r *Repository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	return r.DB(ctx).Create(order).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.DB(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *Repository) FindOwned(ctx context.Context, userID, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.DB(ctx).Where("id = ? AND user_id = ?", id, userID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// List returns one newest-first page of orders.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.Order, error) {
	q := r.DB(ctx).Model(&models.Order{})
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	var rows []models.Order
	if err := q.Scopes(pagination.Scope(filter.Cursor, filter.Limit)).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ApplyTransition moves an order from one state to another only if it is
// still in the state it was read in.
func (r *Repository) ApplyTransition(ctx context.Context, id uuid.UUID, from, to orderstate.State, extra map[string]any) error {
	updates := map[string]any{
		"status":         to.Status,
		"payment_status": to.Payment,
	}
	for k, v := range extra {
		updates[k] = v
	}
	res := r.DB(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ? AND payment_status = ?", id, from.Status, from.Payment).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleOrder
	}
	return nil
}

// UpdateDelivery writes delivery metadata while the order is still open.
func (r *Repository) UpdateDelivery(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	res := r.DB(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Where("status NOT IN ?", []enums.OrderStatus{enums.OrderStatusDelivered, enums.OrderStatusCancelled}).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleOrder
	}
	return nil
}
