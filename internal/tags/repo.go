package tags

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pawtagapp/pawtag-backend/pkg/db/models"
	"github.com/pawtagapp/pawtag-backend/pkg/enums"
)

// Repository exposes tag persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a tags repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByActivationToken loads a tag by the token printed on it.
func (r *Repository) FindByActivationToken(ctx context.Context, token string) (*models.Tag, error) {
	var tag models.Tag
	if err := r.db.WithContext(ctx).
		Where("activation_token = ?", token).
		First(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

// BindToPet flips the tag to active and attaches the pet and owner, but only
// while the row is still unclaimed. The status guard in the WHERE clause is
// what serializes concurrent claims: the loser sees zero rows affected.
func (r *Repository) BindToPet(ctx context.Context, tagID, petID, ownerID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Tag{}).
		Where("id = ? AND status = ?", tagID, enums.TagStatusUnclaimed).
		Updates(map[string]any{
			"status":   enums.TagStatusActive,
			"pet_id":   petID,
			"owner_id": ownerID,
		})
	return res.RowsAffected, res.Error
}

// CreateBatch inserts a provisioning run of tags in one statement.
func (r *Repository) CreateBatch(ctx context.Context, batch []*models.Tag) error {
	if len(batch) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(batch).Error
}

// ListByOwner returns the tags an owner has claimed.
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Tag, error) {
	var out []models.Tag
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("updated_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// CountByStatus reports how many tags sit in the given state.
func (r *Repository) CountByStatus(ctx context.Context, status enums.TagStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Tag{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}
