package pets

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pawtagapp/pawtag-backend/pkg/db/models"
)

// Repository exposes pet persistence. Every owner-scoped query filters on
// owner_id in SQL rather than checking ownership after the fact, so a wrong
// owner can never observe whether a row exists.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a pets repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new pet and returns the persisted model.
func (r *Repository) Create(ctx context.Context, pet *models.Pet) (*models.Pet, error) {
	if err := r.db.WithContext(ctx).Create(pet).Error; err != nil {
		return nil, err
	}
	return pet, nil
}

// FindByPublicID loads a pet by its public profile slug.
func (r *Repository) FindByPublicID(ctx context.Context, publicID string) (*models.Pet, error) {
	var pet models.Pet
	if err := r.db.WithContext(ctx).Where("public_id = ?", publicID).First(&pet).Error; err != nil {
		return nil, err
	}
	return &pet, nil
}

// FindForOwner loads a pet only when it belongs to the given owner.
func (r *Repository) FindForOwner(ctx context.Context, id, ownerID uuid.UUID) (*models.Pet, error) {
	var pet models.Pet
	if err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&pet).Error; err != nil {
		return nil, err
	}
	return &pet, nil
}

// ListByOwner returns the owner's pets, newest first.
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Pet, error) {
	var out []models.Pet
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Save persists the full pet row.
func (r *Repository) Save(ctx context.Context, pet *models.Pet) error {
	return r.db.WithContext(ctx).Save(pet).Error
}

// DeleteForOwner removes the pet when it belongs to the owner, reporting how
// many rows matched.
func (r *Repository) DeleteForOwner(ctx context.Context, id, ownerID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&models.Pet{})
	return res.RowsAffected, res.Error
}

// DeleteByID removes a pet unconditionally. Used only by the claim
// compensation path, which owns the row it just created.
func (r *Repository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Pet{}).Error
}

// ExistsPublicID reports whether the slug is already taken.
func (r *Repository) ExistsPublicID(ctx context.Context, publicID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Pet{}).
		Where("public_id = ?", publicID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
