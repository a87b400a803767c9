package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pawtagapp/pawtag-backend/internal/alerts"
	"github.com/pawtagapp/pawtag-backend/pkg/db/models"
	pkgerrors "github.com/pawtagapp/pawtag-backend/pkg/errors"
)

type profileRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.OwnerProfile, error)
	Upsert(ctx context.Context, profile *models.OwnerProfile) error
}

// Service exposes the owner contact profile.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*ProfileDTO, error)
	Update(ctx context.Context, userID uuid.UUID, input UpdateInput) (*ProfileDTO, error)
}

// ProfileDTO is the owner-facing contact profile.
type ProfileDTO struct {
	DisplayName *string   `json:"display_name,omitempty"`
	Phone       *string   `json:"phone,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UpdateInput carries the mutable profile fields; nil leaves a field alone
// and an empty string clears it.
type UpdateInput struct {
	DisplayName *string
	Phone       *string
}

type service struct {
	repo profileRepository
}

// NewService builds a profile service with the provided repository.
func NewService(repo profileRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("profile repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*ProfileDTO, error) {
	profile, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// A fresh account simply has an empty profile.
			return &ProfileDTO{}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup profile")
	}
	return fromModel(profile), nil
}

func (s *service) Update(ctx context.Context, userID uuid.UUID, input UpdateInput) (*ProfileDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "owner is required")
	}

	existing, err := s.repo.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup profile")
		}
		existing = &models.OwnerProfile{UserID: userID}
	}

	if input.DisplayName != nil {
		name := strings.TrimSpace(*input.DisplayName)
		if name == "" {
			existing.DisplayName = nil
		} else {
			existing.DisplayName = &name
		}
	}
	if input.Phone != nil {
		raw := strings.TrimSpace(*input.Phone)
		if raw == "" {
			existing.Phone = nil
		} else {
			// Stored normalized so link synthesis never has to guess.
			normalized, err := alerts.NormalizePhone(raw)
			if err != nil {
				return nil, err
			}
			existing.Phone = &normalized
		}
	}

	if err := s.repo.Upsert(ctx, existing); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save profile")
	}
	return fromModel(existing), nil
}

func fromModel(m *models.OwnerProfile) *ProfileDTO {
	return &ProfileDTO{
		DisplayName: m.DisplayName,
		Phone:       m.Phone,
		UpdatedAt:   m.UpdatedAt,
	}
}
