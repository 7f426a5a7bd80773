package address

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/crumbhouse/bakery-backend/internal/repo"
	"github.com/crumbhouse/bakery-backend/pkg/db/models"
)

// Repository persists customer addresses. Every lookup is scoped to the owner.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, addr *models.Address) error {
	if addr.ID == uuid.Nil {
		addr.ID = uuid.New()
	}
	return r.DB(ctx).Create(addr).Error
}

func (r *Repository) Update(ctx context.Context, addr *models.Address) error {
	return r.DB(ctx).Save(addr).Error
}

func (r *Repository) FindOwned(ctx context.Context, userID, id uuid.UUID) (*models.Address, error) {
	var addr models.Address
	if err := r.DB(ctx).Where("id = ? AND user_id = ?", id, userID).First(&addr).Error; err != nil {
		return nil, err
	}
	return &addr, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	var rows []models.Address
	err := r.DB(ctx).Where("user_id = ?", userID).Order("created_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

func (r *Repository) DeleteOwned(ctx context.Context, userID, id uuid.UUID) error {
	res := r.DB(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Address{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
