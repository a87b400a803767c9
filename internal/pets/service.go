package pets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pawtagapp/pawtag-backend/pkg/db/models"
	pkgerrors "github.com/pawtagapp/pawtag-backend/pkg/errors"
	"github.com/pawtagapp/pawtag-backend/pkg/publicid"
)

type petRepository interface {
	Create(ctx context.Context, pet *models.Pet) (*models.Pet, error)
	FindByPublicID(ctx context.Context, publicID string) (*models.Pet, error)
	FindForOwner(ctx context.Context, id, ownerID uuid.UUID) (*models.Pet, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Pet, error)
	Save(ctx context.Context, pet *models.Pet) error
	DeleteForOwner(ctx context.Context, id, ownerID uuid.UUID) (int64, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
	ExistsPublicID(ctx context.Context, publicID string) (bool, error)
}

// Service exposes pet profile operations.
type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, input CreatePetInput) (*PetDTO, error)
	GetForOwner(ctx context.Context, ownerID, petID uuid.UUID) (*PetDTO, error)
	ListForOwner(ctx context.Context, ownerID uuid.UUID) ([]PetDTO, error)
	Update(ctx context.Context, ownerID, petID uuid.UUID, input UpdatePetInput) (*PetDTO, error)
	Delete(ctx context.Context, ownerID, petID uuid.UUID) error
	DeleteUnchecked(ctx context.Context, petID uuid.UUID) error
	PublicProfile(ctx context.Context, publicID string) (*PublicPetDTO, error)
}

type service struct {
	repo       petRepository
	idAttempts int
}

// NewService builds a pet service with the provided repository.
func NewService(repo petRepository, idAttempts int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("pet repository required")
	}
	if idAttempts <= 0 {
		idAttempts = publicid.DefaultAttempts
	}
	return &service{repo: repo, idAttempts: idAttempts}, nil
}

// CreatePetInput captures the owner-authored profile fields.
type CreatePetInput struct {
	Name     string
	AgeYears *int
	Breed    *string
	Notes    *string
}

// UpdatePetInput carries partial profile mutations; nil means leave as is.
type UpdatePetInput struct {
	Name      *string
	AgeYears  *int
	Breed     *string
	PhotoPath *string
	Notes     *string
	IsActive  *bool
}

func (s *service) Create(ctx context.Context, ownerID uuid.UUID, input CreatePetInput) (*PetDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pet name is required")
	}
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "owner is required")
	}

	slug, err := publicid.UniquePublicID(ctx, s.idAttempts, s.repo.ExistsPublicID)
	if err != nil {
		if errors.Is(err, publicid.ErrCollisionBudgetExhausted) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "allocate public id")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate public id")
	}

	pet := &models.Pet{
		OwnerID:  ownerID,
		PublicID: slug,
		Name:     name,
		AgeYears: input.AgeYears,
		Breed:    input.Breed,
		Notes:    input.Notes,
		IsActive: true,
	}
	created, err := s.repo.Create(ctx, pet)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create pet")
	}
	return FromModel(created), nil
}

func (s *service) GetForOwner(ctx context.Context, ownerID, petID uuid.UUID) (*PetDTO, error) {
	pet, err := s.findOwned(ctx, ownerID, petID)
	if err != nil {
		return nil, err
	}
	return FromModel(pet), nil
}

func (s *service) ListForOwner(ctx context.Context, ownerID uuid.UUID) ([]PetDTO, error) {
	rows, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pets")
	}
	out := make([]PetDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, ownerID, petID uuid.UUID, input UpdatePetInput) (*PetDTO, error) {
	pet, err := s.findOwned(ctx, ownerID, petID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "pet name cannot be empty")
		}
		pet.Name = name
	}
	if input.AgeYears != nil {
		pet.AgeYears = input.AgeYears
	}
	if input.Breed != nil {
		pet.Breed = input.Breed
	}
	if input.PhotoPath != nil {
		pet.PhotoPath = input.PhotoPath
	}
	if input.Notes != nil {
		pet.Notes = input.Notes
	}
	if input.IsActive != nil {
		pet.IsActive = *input.IsActive
	}

	if err := s.repo.Save(ctx, pet); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update pet")
	}
	return FromModel(pet), nil
}

func (s *service) Delete(ctx context.Context, ownerID, petID uuid.UUID) error {
	affected, err := s.repo.DeleteForOwner(ctx, petID, ownerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete pet")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "pet not found")
	}
	return nil
}

// DeleteUnchecked removes a pet without an ownership filter. It exists for
// the claim compensation path; nothing else should call it.
func (s *service) DeleteUnchecked(ctx context.Context, petID uuid.UUID) error {
	if err := s.repo.DeleteByID(ctx, petID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete pet")
	}
	return nil
}

// PublicProfile resolves the anonymous finder view. A missing pet and a
// deactivated pet are deliberately indistinguishable.
func (s *service) PublicProfile(ctx context.Context, publicID string) (*PublicPetDTO, error) {
	pet, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pet not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup pet")
	}
	if !pet.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pet not found")
	}
	return PublicFromModel(pet), nil
}

func (s *service) findOwned(ctx context.Context, ownerID, petID uuid.UUID) (*models.Pet, error) {
	pet, err := s.repo.FindForOwner(ctx, petID, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pet not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup pet")
	}
	return pet, nil
}
