package documents

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pawtagapp/pawtag-backend/pkg/db/models"
)

// Repository exposes document metadata persistence. All reads are scoped by
// owner_id in SQL.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a documents repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a document row.
func (r *Repository) Create(ctx context.Context, doc *models.Document) (*models.Document, error) {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return nil, err
	}
	return doc, nil
}

// FindForOwner loads a document only when it belongs to the owner.
func (r *Repository) FindForOwner(ctx context.Context, id, ownerID uuid.UUID) (*models.Document, error) {
	var doc models.Document
	if err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListByPet returns the documents attached to one of the owner's pets.
func (r *Repository) ListByPet(ctx context.Context, petID, ownerID uuid.UUID) ([]models.Document, error) {
	var out []models.Document
	if err := r.db.WithContext(ctx).
		Where("pet_id = ? AND owner_id = ?", petID, ownerID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteForOwner removes a document row, reporting how many rows matched.
func (r *Repository) DeleteForOwner(ctx context.Context, id, ownerID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&models.Document{})
	return res.RowsAffected, res.Error
}
