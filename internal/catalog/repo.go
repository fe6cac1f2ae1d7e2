package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brickline/estimator-backend/pkg/db/models"
)

// NormRepository reads the norm catalog. The resolution engine never mutates
// norms; catalog maintenance happens through a separate import pipeline.
type NormRepository interface {
	FindByCode(ctx context.Context, code string) (*models.Norm, error)
	List(ctx context.Context) ([]models.Norm, error)
}

// ResourceRepository reads and extends the priceable resource catalog.
type ResourceRepository interface {
	List(ctx context.Context) ([]models.Resource, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Resource, error)
	Create(ctx context.Context, resource *models.Resource) error
	MaxCodeWithPrefix(ctx context.Context, prefix string) (string, error)
}

type normRepository struct {
	db *gorm.DB
}

func NewNormRepository(db *gorm.DB) NormRepository {
	return &normRepository{db: db}
}

func (r *normRepository) FindByCode(ctx context.Context, code string) (*models.Norm, error) {
	var norm models.Norm
	if err := r.db.WithContext(ctx).
		Preload("Details", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("position ASC")
		}).
		Preload("Details.Resource").
		First(&norm, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &norm, nil
}

func (r *normRepository) List(ctx context.Context) ([]models.Norm, error) {
	var norms []models.Norm
	if err := r.db.WithContext(ctx).
		Order("code ASC").
		Find(&norms).Error; err != nil {
		return nil, err
	}
	return norms, nil
}

type resourceRepository struct {
	db *gorm.DB
}

func NewResourceRepository(db *gorm.DB) ResourceRepository {
	return &resourceRepository{db: db}
}

func (r *resourceRepository) List(ctx context.Context) ([]models.Resource, error) {
	var resources []models.Resource
	if err := r.db.WithContext(ctx).
		Order("code ASC").
		Find(&resources).Error; err != nil {
		return nil, err
	}
	return resources, nil
}

func (r *resourceRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Resource, error) {
	var resource models.Resource
	if err := r.db.WithContext(ctx).First(&resource, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &resource, nil
}

func (r *resourceRepository) Create(ctx context.Context, resource *models.Resource) error {
	return r.db.WithContext(ctx).Create(resource).Error
}

// MaxCodeWithPrefix returns the lexicographically greatest code under the
// prefix. Codes are zero-padded on allocation, so lexicographic and numeric
// order agree.
func (r *resourceRepository) MaxCodeWithPrefix(ctx context.Context, prefix string) (string, error) {
	var code string
	err := r.db.WithContext(ctx).
		Model(&models.Resource{}).
		Where("code LIKE ?", prefix+"-%").
		Order("code DESC").
		Limit(1).
		Pluck("code", &code).Error
	if err != nil {
		return "", err
	}
	return code, nil
}
