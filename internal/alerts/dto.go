package alerts

import (
	"time"

	"github.com/google/uuid"

	"github.com/pawtagapp/pawtag-backend/pkg/db/models"
)

// AlertDTO is the owner-facing inbox shape.
type AlertDTO struct {
	ID                uuid.UUID `json:"id"`
	PetID             uuid.UUID `json:"pet_id"`
	PublicID          string    `json:"public_id"`
	FinderMessage     string    `json:"finder_message"`
	FinderPhone       *string   `json:"finder_phone,omitempty"`
	FinderLocationURL *string   `json:"finder_location_url,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// SubmitResultDTO is what an anonymous finder gets back. Its shape is
// identical whether the alert was recorded or silently dropped.
type SubmitResultDTO struct {
	PetName string        `json:"pet_name"`
	Links   *ContactLinks `json:"links,omitempty"`
}

func FromModel(m *models.Alert) *AlertDTO {
	if m == nil {
		return nil
	}
	return &AlertDTO{
		ID:                m.ID,
		PetID:             m.PetID,
		PublicID:          m.PublicID,
		FinderMessage:     m.FinderMessage,
		FinderPhone:       m.FinderPhone,
		FinderLocationURL: m.FinderLocationURL,
		CreatedAt:         m.CreatedAt,
	}
}
