package alerts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pawtagapp/pawtag-backend/pkg/db/models"
)

// Repository exposes alert persistence. It doubles as the durable layer of
// the abuse engine, which is why the recency queries live here.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an alerts repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts an alert row. Alerts are immutable after this point.
func (r *Repository) Create(ctx context.Context, alert *models.Alert) (*models.Alert, error) {
	if err := r.db.WithContext(ctx).Create(alert).Error; err != nil {
		return nil, err
	}
	return alert, nil
}

// ListForOwner returns the newest alerts across all of the owner's pets.
// Ownership is enforced in SQL via the pets subquery.
func (r *Repository) ListForOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.Alert, error) {
	ownedPets := r.db.Model(&models.Pet{}).Select("id").Where("owner_id = ?", ownerID)

	var out []models.Alert
	q := r.db.WithContext(ctx).
		Where("pet_id IN (?)", ownedPets).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteForOwner removes an alert only when it belongs to one of the owner's
// pets, reporting how many rows matched.
func (r *Repository) DeleteForOwner(ctx context.Context, alertID, ownerID uuid.UUID) (int64, error) {
	ownedPets := r.db.Model(&models.Pet{}).Select("id").Where("owner_id = ?", ownerID)

	res := r.db.WithContext(ctx).
		Where("id = ? AND pet_id IN (?)", alertID, ownedPets).
		Delete(&models.Alert{})
	return res.RowsAffected, res.Error
}

// CountRecentByPublicID counts alerts recorded for a tag since the cutoff.
func (r *Repository) CountRecentByPublicID(ctx context.Context, publicID string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("public_id = ? AND created_at >= ?", publicID, since).
		Count(&count).Error
	return count, err
}

// HasRecentDuplicate reports whether this tag already has a recent alert
// from the same phone number, or with the same message text from the same
// browser. Messages are compared case-insensitively so trivial retyping
// does not defeat the check.
func (r *Repository) HasRecentDuplicate(ctx context.Context, publicID, userAgent, message, phone string, since time.Time) (bool, error) {
	match := r.db.Where("user_agent = ? AND LOWER(finder_message) = LOWER(?)", userAgent, message)
	if phone != "" {
		match = match.Or("finder_phone = ?", phone)
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("public_id = ? AND created_at >= ?", publicID, since).
		Where(match).
		Count(&count).Error
	return count > 0, err
}
