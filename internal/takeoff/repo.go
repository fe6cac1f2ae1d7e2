package takeoff

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brickline/estimator-backend/pkg/db/models"
)

// Repository manages persistence for the takeoff tree.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateItem(ctx context.Context, item *models.TakeoffItem) error
	CreateDetail(ctx context.Context, detail *models.TakeoffDetail) error
	FindItem(ctx context.Context, itemID uuid.UUID) (*models.TakeoffItem, error)
	UpdateNormCode(ctx context.Context, itemID uuid.UUID, normCode *string) error
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.TakeoffItem, error)
	ListActiveWithNorm(ctx context.Context, projectID uuid.UUID) ([]models.TakeoffItem, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a takeoff repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateItem(ctx context.Context, item *models.TakeoffItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) CreateDetail(ctx context.Context, detail *models.TakeoffDetail) error {
	return r.db.WithContext(ctx).Create(detail).Error
}

func (r *repository) FindItem(ctx context.Context, itemID uuid.UUID) (*models.TakeoffItem, error) {
	var item models.TakeoffItem
	if err := r.db.WithContext(ctx).
		Preload("Details").
		First(&item, "id = ?", itemID).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) UpdateNormCode(ctx context.Context, itemID uuid.UUID, normCode *string) error {
	return r.db.WithContext(ctx).
		Model(&models.TakeoffItem{}).
		Where("id = ?", itemID).
		Update("norm_code", normCode).Error
}

func (r *repository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.TakeoffItem, error) {
	var items []models.TakeoffItem
	if err := r.db.WithContext(ctx).
		Preload("Details").
		Where("project_id = ?", projectID).
		Order("position ASC, created_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ListActiveWithNorm(ctx context.Context, projectID uuid.UUID) ([]models.TakeoffItem, error) {
	var items []models.TakeoffItem
	if err := r.db.WithContext(ctx).
		Preload("Details").
		Where("project_id = ? AND is_active = ? AND norm_code IS NOT NULL", projectID, true).
		Order("position ASC, created_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
