package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/pawtagapp/pawtag-backend/pkg/enums"
)

// Tag represents a physical NFC tag. Rows are created in bulk at manufacturing
// time and transition unclaimed -> active exactly once, when an owner claims the
// tag. PetID and OwnerID stay null until that transition.
type Tag struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ActivationToken string          `gorm:"column:activation_token;type:text;not null;uniqueIndex"`
	Status          enums.TagStatus `gorm:"column:status;type:text;not null;default:'unclaimed'"`
	PetID           *uuid.UUID      `gorm:"column:pet_id;type:uuid"`
	OwnerID         *uuid.UUID      `gorm:"column:owner_id;type:uuid"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
