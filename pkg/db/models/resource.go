package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brickline/estimator-backend/pkg/enums"
)

// Resource is one priceable catalog entry (material, labor or machine hour).
// UnitPrice is catalog-owned and may change independently of any estimate.
type Resource struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code      string              `gorm:"column:code;uniqueIndex;not null"`
	Name      string              `gorm:"column:name;not null"`
	Unit      string              `gorm:"column:unit;not null"`
	GroupCode enums.ResourceGroup `gorm:"column:group_code;type:resource_group;not null;default:'material'"`
	UnitPrice decimal.Decimal     `gorm:"column:unit_price;type:numeric(12,2);not null;default:0"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
