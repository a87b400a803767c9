package pets

import (
	"time"

	"github.com/google/uuid"

	"github.com/pawtagapp/pawtag-backend/pkg/db/models"
)

// PetDTO is the owner-facing shape, including the dashboard-only fields.
type PetDTO struct {
	ID        uuid.UUID `json:"id"`
	PublicID  string    `json:"public_id"`
	Name      string    `json:"name"`
	AgeYears  *int      `json:"age_years,omitempty"`
	Breed     *string   `json:"breed,omitempty"`
	PhotoPath *string   `json:"photo_path,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PublicPetDTO is what an anonymous finder sees on /p/{public_id}. It must
// never carry owner identity or contact details.
type PublicPetDTO struct {
	PublicID  string  `json:"public_id"`
	Name      string  `json:"name"`
	AgeYears  *int    `json:"age_years,omitempty"`
	Breed     *string `json:"breed,omitempty"`
	PhotoPath *string `json:"photo_path,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

func FromModel(m *models.Pet) *PetDTO {
	if m == nil {
		return nil
	}
	return &PetDTO{
		ID:        m.ID,
		PublicID:  m.PublicID,
		Name:      m.Name,
		AgeYears:  m.AgeYears,
		Breed:     m.Breed,
		PhotoPath: m.PhotoPath,
		Notes:     m.Notes,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func PublicFromModel(m *models.Pet) *PublicPetDTO {
	if m == nil {
		return nil
	}
	return &PublicPetDTO{
		PublicID:  m.PublicID,
		Name:      m.Name,
		AgeYears:  m.AgeYears,
		Breed:     m.Breed,
		PhotoPath: m.PhotoPath,
		Notes:     m.Notes,
	}
}
