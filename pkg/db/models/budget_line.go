package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BudgetLine is one row of the material budget, the unpriced sibling source
// that budget sync merges into the estimate ledger.
type BudgetLine struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProjectID    uuid.UUID       `gorm:"column:project_id;type:uuid;not null;index"`
	Category     string          `gorm:"column:category;not null"`
	MaterialCode string          `gorm:"column:material_code;not null;default:''"`
	MaterialName string          `gorm:"column:material_name;not null"`
	Quantity     decimal.Decimal `gorm:"column:quantity;type:numeric(14,3);not null;default:0"`
	Unit         string          `gorm:"column:unit;not null;default:''"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
