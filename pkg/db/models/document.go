package models

import (
	"time"

	"github.com/google/uuid"
)

// Document records a file (vaccination card, adoption papers, photo) stored in
// the blob store under ObjectPath. The row is metadata only; bytes live in GCS.
type Document struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	PetID      uuid.UUID `gorm:"column:pet_id;type:uuid;not null;index"`
	OwnerID    uuid.UUID `gorm:"column:owner_id;type:uuid;not null;index"`
	FileName   string    `gorm:"column:file_name;type:text;not null"`
	ObjectPath string    `gorm:"column:object_path;type:text;not null"`
	MimeType   string    `gorm:"column:mime_type;type:text;not null"`
	SizeBytes  int64     `gorm:"column:size_bytes;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}
