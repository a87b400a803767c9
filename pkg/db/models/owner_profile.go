package models

import (
	"time"

	"github.com/google/uuid"
)

// OwnerProfile carries per-account contact details used to synthesize the
// call/text deep links returned to a finder after a successful alert.
type OwnerProfile struct {
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	DisplayName *string   `gorm:"column:display_name;type:text"`
	Phone       *string   `gorm:"column:phone;type:text"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName keeps the original table naming.
func (OwnerProfile) TableName() string {
	return "profiles"
}
