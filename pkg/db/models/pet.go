package models

import (
	"time"

	"github.com/google/uuid"
)

// Pet is an owner-authored profile reachable at /p/{public_id}.
type Pet struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID   uuid.UUID  `gorm:"column:owner_id;type:uuid;not null;index"`
	PublicID  string     `gorm:"column:public_id;type:text;not null;uniqueIndex"`
	Name      string     `gorm:"column:name;type:text;not null"`
	AgeYears  *int       `gorm:"column:age_years"`
	Breed     *string    `gorm:"column:breed;type:text"`
	PhotoPath *string    `gorm:"column:photo_path;type:text"`
	Notes     *string    `gorm:"column:notes;type:text"`
	IsActive  bool       `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
