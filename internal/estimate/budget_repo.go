package estimate

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brickline/estimator-backend/pkg/db/models"
)

// BudgetRepository reads the material budget rows that budget sync merges
// into the ledger.
type BudgetRepository interface {
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.BudgetLine, error)
	Create(ctx context.Context, line *models.BudgetLine) error
}

type budgetRepository struct {
	db *gorm.DB
}

func NewBudgetRepository(db *gorm.DB) BudgetRepository {
	return &budgetRepository{db: db}
}

func (r *budgetRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.BudgetLine, error) {
	var lines []models.BudgetLine
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("category ASC, material_name ASC").
		Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *budgetRepository) Create(ctx context.Context, line *models.BudgetLine) error {
	return r.db.WithContext(ctx).Create(line).Error
}
