package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/brickline/estimator-backend/pkg/enums"
)

// TakeoffItem is one node of the quantity takeoff tree. Sections sit at the
// top level; measured items hang one level below them via ParentID. An item
// gains pricing semantics once a norm code is assigned to it.
type TakeoffItem struct {
	ID        uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProjectID uuid.UUID             `gorm:"column:project_id;type:uuid;not null;index"`
	ParentID  *uuid.UUID            `gorm:"column:parent_id;type:uuid"`
	Name      string                `gorm:"column:name;not null"`
	Unit      string                `gorm:"column:unit;not null;default:''"`
	NormCode  *string               `gorm:"column:norm_code"`
	ItemType  enums.TakeoffItemType `gorm:"column:item_type;type:takeoff_item_type;not null;default:'item'"`
	Position  int                   `gorm:"column:position;not null;default:0"`
	IsActive  bool                  `gorm:"column:is_active;not null"`
	CreatedAt time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time             `gorm:"column:updated_at;autoUpdateTime"`

	Details []TakeoffDetail `gorm:"foreignKey:TakeoffItemID;constraint:OnDelete:CASCADE"`
}
