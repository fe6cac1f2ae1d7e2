package estimate

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/brickline/estimator-backend/pkg/db/models"
)

// Repository manages persistence for the estimate ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	DeleteDerived(ctx context.Context, projectID uuid.UUID) (int64, error)
	BulkInsert(ctx context.Context, lines []models.EstimateLine) error
	UpsertMergeBatch(ctx context.Context, lines []models.EstimateLine) error
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.EstimateLine, error)
	FindLine(ctx context.Context, lineID uuid.UUID) (*models.EstimateLine, error)
	CreateLine(ctx context.Context, line *models.EstimateLine) error
	UpdateUnitPrice(ctx context.Context, lineID uuid.UUID, price decimal.Decimal) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an estimate repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// DeleteDerived removes only rows carrying a takeoff back-reference. Manual
// and budget-synced rows never match.
func (r *repository) DeleteDerived(ctx context.Context, projectID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("project_id = ? AND takeoff_item_id IS NOT NULL", projectID).
		Delete(&models.EstimateLine{})
	return result.RowsAffected, result.Error
}

func (r *repository) BulkInsert(ctx context.Context, lines []models.EstimateLine) error {
	if len(lines) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&lines).Error
}

// UpsertMergeBatch inserts or updates by the merge identity
// (project_id, category, material_name) over rows without a takeoff
// back-reference. Unit price is deliberately absent from the update set so a
// hand-entered price survives every resync.
func (r *repository) UpsertMergeBatch(ctx context.Context, lines []models.EstimateLine) error {
	if len(lines) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "project_id"},
				{Name: "category"},
				{Name: "material_name"},
			},
			TargetWhere: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "takeoff_item_id IS NULL"},
			}},
			DoUpdates: clause.AssignmentColumns([]string{
				"material_code", "quantity", "unit", "updated_at",
			}),
		}).
		Create(&lines).Error
}

func (r *repository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.EstimateLine, error) {
	var lines []models.EstimateLine
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("section_name ASC, category ASC, material_name ASC").
		Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repository) FindLine(ctx context.Context, lineID uuid.UUID) (*models.EstimateLine, error) {
	var line models.EstimateLine
	if err := r.db.WithContext(ctx).First(&line, "id = ?", lineID).Error; err != nil {
		return nil, err
	}
	return &line, nil
}

func (r *repository) CreateLine(ctx context.Context, line *models.EstimateLine) error {
	return r.db.WithContext(ctx).Create(line).Error
}

func (r *repository) UpdateUnitPrice(ctx context.Context, lineID uuid.UUID, price decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.EstimateLine{}).
		Where("id = ?", lineID).
		Update("unit_price", price).Error
}
