package profiles

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pawtagapp/pawtag-backend/pkg/db/models"
)

// Repository exposes owner profile persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a profiles repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Get loads the owner's contact profile.
func (r *Repository) Get(ctx context.Context, userID uuid.UUID) (*models.OwnerProfile, error) {
	var profile models.OwnerProfile
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// Upsert writes the profile row, inserting on first save.
func (r *Repository) Upsert(ctx context.Context, profile *models.OwnerProfile) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			UpdateAll: true,
		}).
		Create(profile).Error
}
