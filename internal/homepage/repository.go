package homepage

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/crumbhouse/bakery-backend/internal/repo"
	"github.com/crumbhouse/bakery-backend/pkg/db/models"
)

// Repository persists homepage sections.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, section *models.HomepageSection) error {
	if section.ID == uuid.Nil {
		section.ID = uuid.New()
	}
	return r.DB(ctx).Create(section).Error
}

func (r *Repository) Update(ctx context.Context, section *models.HomepageSection) error {
	return r.DB(ctx).Save(section).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.DB(ctx).Delete(&models.HomepageSection{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.HomepageSection, error) {
	var section models.HomepageSection
	if err := r.DB(ctx).First(&section, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &section, nil
}

// List returns sections by position. visibleOnly hides sections switched off by an admin.
func (r *Repository) List(ctx context.Context, visibleOnly bool) ([]models.HomepageSection, error) {
	q := r.DB(ctx).Model(&models.HomepageSection{})
	if visibleOnly {
		q = q.Where("visible = ?", true)
	}
	var rows []models.HomepageSection
	if err := q.Order("position ASC").Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// NextPosition returns the position after the current last section.
func (r *Repository) NextPosition(ctx context.Context) (int, error) {
	var last int
	row := r.DB(ctx).Model(&models.HomepageSection{}).Select("COALESCE(MAX(position), -1)").Row()
	if err := row.Scan(&last); err != nil {
		return 0, err
	}
	return last + 1, nil
}

// Reorder assigns positions following ids in a single transaction.
func (r *Repository) Reorder(ctx context.Context, ids []uuid.UUID) error {
	return r.DB(ctx).Transaction(func(tx *gorm.DB) error {
		for position, id := range ids {
			res := tx.Model(&models.HomepageSection{}).
				Where("id = ?", id).
				UpdateColumn("position", position)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		return nil
	})
}
