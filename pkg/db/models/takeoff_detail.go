package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TakeoffDetail is one geometric measurement row under a takeoff item.
// Numeric fields default to zero, never null; a zero dimension means
// "unknown/not applicable" and rolls up as a multiplicative identity.
type TakeoffDetail struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TakeoffItemID  uuid.UUID       `gorm:"column:takeoff_item_id;type:uuid;not null;index"`
	Explanation    string          `gorm:"column:explanation;not null;default:''"`
	QuantityFactor decimal.Decimal `gorm:"column:quantity_factor;type:numeric(14,3);not null;default:0"`
	Length         decimal.Decimal `gorm:"column:length;type:numeric(14,3);not null;default:0"`
	Width          decimal.Decimal `gorm:"column:width;type:numeric(14,3);not null;default:0"`
	Height         decimal.Decimal `gorm:"column:height;type:numeric(14,3);not null;default:0"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
