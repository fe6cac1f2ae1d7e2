package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NormDetail binds a resource to a norm with a per-unit consumption
// coefficient: Quantity of the resource per one unit of the norm's output.
type NormDetail struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	NormID     uuid.UUID       `gorm:"column:norm_id;type:uuid;not null;index"`
	ResourceID uuid.UUID       `gorm:"column:resource_id;type:uuid;not null"`
	Quantity   decimal.Decimal `gorm:"column:quantity;type:numeric(14,3);not null"`
	Position   int             `gorm:"column:position;not null;default:0"`

	Resource *Resource `gorm:"foreignKey:ResourceID"`
}
