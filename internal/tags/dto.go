package tags

import (
	"time"

	"github.com/google/uuid"

	"github.com/pawtagapp/pawtag-backend/pkg/db/models"
	"github.com/pawtagapp/pawtag-backend/pkg/enums"
)

// TagDTO is the owner-facing tag shape.
type TagDTO struct {
	ID              uuid.UUID       `json:"id"`
	ActivationToken string          `json:"activation_token"`
	Status          enums.TagStatus `json:"status"`
	PetID           *uuid.UUID      `json:"pet_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// PreviewDTO tells the activation page whether a scanned tag can still be
// claimed. It never exposes the bound pet or owner.
type PreviewDTO struct {
	Status    enums.TagStatus `json:"status"`
	Claimable bool            `json:"claimable"`
}

func FromModel(m *models.Tag) *TagDTO {
	if m == nil {
		return nil
	}
	return &TagDTO{
		ID:              m.ID,
		ActivationToken: m.ActivationToken,
		Status:          m.Status,
		PetID:           m.PetID,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}
