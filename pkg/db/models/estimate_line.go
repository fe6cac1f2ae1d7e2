package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brickline/estimator-backend/pkg/enums"
)

// EstimateLine is one priced row of the project cost ledger. Rows carrying a
// TakeoffItemID were derived by the resolution engine and are deleted and
// recreated on every resync; rows without one were entered by hand or synced
// from the budget and the engine never touches them. The merge identity is
// (project_id, category, material_name), enforced by a partial unique index on
// rows without a back-reference. Derived rows are exempt so one norm can emit
// the same resource more than once without dedup.
type EstimateLine struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProjectID     uuid.UUID             `gorm:"column:project_id;type:uuid;not null;index"`
	Category      string                `gorm:"column:category;not null"`
	MaterialCode  string                `gorm:"column:material_code;not null;default:''"`
	MaterialName  string                `gorm:"column:material_name;not null"`
	Quantity      decimal.Decimal       `gorm:"column:quantity;type:numeric(14,3);not null;default:0"`
	Unit          string                `gorm:"column:unit;not null;default:''"`
	UnitPrice     decimal.Decimal       `gorm:"column:unit_price;type:numeric(12,2);not null;default:0"`
	SectionName   enums.EstimateSection `gorm:"column:section_name;type:estimate_section;not null;default:'freeform'"`
	IsMapped      bool                  `gorm:"column:is_mapped;not null"`
	TakeoffItemID *uuid.UUID            `gorm:"column:takeoff_item_id;type:uuid;index"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// TotalCost is a pure function of quantity and unit price. It is never
// stored; reports recompute it on read.
func (e EstimateLine) TotalCost() decimal.Decimal {
	return e.Quantity.Mul(e.UnitPrice)
}

// IsDerived reports whether the line was produced by a resolution run.
func (e EstimateLine) IsDerived() bool {
	return e.TakeoffItemID != nil
}
