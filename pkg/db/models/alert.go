package models

import (
	"time"

	"github.com/google/uuid"
)

// Alert is an immutable finder report. Rows are only ever inserted by the
// submission pipeline and deleted by the pet's owner; there is no update path.
type Alert struct {
	ID                uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	PetID             uuid.UUID `gorm:"column:pet_id;type:uuid;not null;index"`
	PublicID          string    `gorm:"column:public_id;type:text;not null;index"`
	FinderMessage     string    `gorm:"column:finder_message;type:text;not null"`
	FinderPhone       *string   `gorm:"column:finder_phone;type:text"`
	FinderLocationURL *string   `gorm:"column:finder_location_url;type:text"`
	UserAgent         *string   `gorm:"column:user_agent;type:text"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime;index"`
}
