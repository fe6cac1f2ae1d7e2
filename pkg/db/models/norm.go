package models

import (
	"time"

	"github.com/google/uuid"
)

// Norm is a standard consumption recipe: one unit of the norm's output
// consumes fixed quantities of material/labor/machine resources.
// Catalog rows are read-only from the resolution engine's point of view.
type Norm struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code      string    `gorm:"column:code;uniqueIndex;not null"`
	Name      string    `gorm:"column:name;not null"`
	Unit      string    `gorm:"column:unit;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`

	Details []NormDetail `gorm:"foreignKey:NormID;constraint:OnDelete:CASCADE"`
}
