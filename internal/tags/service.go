package tags

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/pawtagapp/pawtag-backend/internal/pets"
	"github.com/pawtagapp/pawtag-backend/internal/profiles"
	"github.com/pawtagapp/pawtag-backend/pkg/db"
	"github.com/pawtagapp/pawtag-backend/pkg/db/models"
	"github.com/pawtagapp/pawtag-backend/pkg/enums"
	pkgerrors "github.com/pawtagapp/pawtag-backend/pkg/errors"
	"github.com/pawtagapp/pawtag-backend/pkg/logger"
	"github.com/pawtagapp/pawtag-backend/pkg/publicid"
)

const (
	previewCacheTTL      = time.Minute
	provisionBatchTries  = 3
	maxProvisionBatchLen = 10000
)

type tagRepository interface {
	FindByActivationToken(ctx context.Context, token string) (*models.Tag, error)
	BindToPet(ctx context.Context, tagID, petID, ownerID uuid.UUID) (int64, error)
	CreateBatch(ctx context.Context, batch []*models.Tag) error
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Tag, error)
	CountByStatus(ctx context.Context, status enums.TagStatus) (int64, error)
}

type petService interface {
	Create(ctx context.Context, ownerID uuid.UUID, input pets.CreatePetInput) (*pets.PetDTO, error)
	DeleteUnchecked(ctx context.Context, petID uuid.UUID) error
}

type profileService interface {
	Update(ctx context.Context, userID uuid.UUID, input profiles.UpdateInput) (*profiles.ProfileDTO, error)
}

type previewCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	ActivationCacheKey(token string) string
}

// Service coordinates the tag lifecycle: provisioning at manufacturing time,
// the activation preview, and the claim transition.
type Service interface {
	Preview(ctx context.Context, token string) (*PreviewDTO, error)
	Claim(ctx context.Context, ownerID uuid.UUID, token string, input ClaimInput) (*ClaimResultDTO, error)
	ListForOwner(ctx context.Context, ownerID uuid.UUID) ([]TagDTO, error)
	Provision(ctx context.Context, count int) ([]string, error)
}

// ClaimInput is the activation form: the pet profile to create plus the
// owner's contact details, saved in the same request when supplied.
type ClaimInput struct {
	Pet         pets.CreatePetInput
	DisplayName *string
	Phone       *string
}

// ClaimResultDTO is what a successful claim returns: the now-active tag and
// the pet profile created for it.
type ClaimResultDTO struct {
	Tag TagDTO      `json:"tag"`
	Pet pets.PetDTO `json:"pet"`
}

type service struct {
	repo     tagRepository
	pets     petService
	profiles profileService
	cache    previewCache
	logg     *logger.Logger
}

// NewService builds the tag coordinator. The cache and profile service are
// optional; without the cache every preview hits the database, and without
// the profile service claims skip the contact upsert.
func NewService(repo tagRepository, petSvc petService, profileSvc profileService, cache previewCache, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("tag repository required")
	}
	if petSvc == nil {
		return nil, fmt.Errorf("pet service required")
	}
	return &service{repo: repo, pets: petSvc, profiles: profileSvc, cache: cache, logg: logg}, nil
}

func (s *service) Preview(ctx context.Context, token string) (*PreviewDTO, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "activation token is required")
	}

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, s.cache.ActivationCacheKey(token)); err == nil && cached != "" {
			status := enums.TagStatus(cached)
			if status.IsValid() {
				return &PreviewDTO{Status: status, Claimable: status == enums.TagStatusUnclaimed}, nil
			}
		}
	}

	tag, err := s.repo.FindByActivationToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tag not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup tag")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, s.cache.ActivationCacheKey(token), string(tag.Status), previewCacheTTL); err != nil && s.logg != nil {
			s.logg.Warn(ctx, "preview cache write failed")
		}
	}

	return &PreviewDTO{Status: tag.Status, Claimable: tag.Status == enums.TagStatusUnclaimed}, nil
}

// Claim creates the pet profile and binds the tag to it. The two writes are
// not atomic, so the bind failure paths compensate by deleting the pet that
// was just created. If the compensation itself fails the caller gets a
// partial-failure error naming the orphaned pet.
func (s *service) Claim(ctx context.Context, ownerID uuid.UUID, token string, input ClaimInput) (*ClaimResultDTO, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "activation token is required")
	}
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "owner is required")
	}

	tag, err := s.repo.FindByActivationToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tag not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup tag")
	}
	if tag.Status != enums.TagStatusUnclaimed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "tag has already been claimed")
	}

	pet, err := s.pets.Create(ctx, ownerID, input.Pet)
	if err != nil {
		return nil, err
	}

	affected, err := s.repo.BindToPet(ctx, tag.ID, pet.ID, ownerID)
	if err != nil {
		return nil, s.compensate(ctx, pet.ID, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bind tag"))
	}
	if affected == 0 {
		// Lost the race: someone claimed the tag between lookup and bind.
		return nil, s.compensate(ctx, pet.ID, pkgerrors.New(pkgerrors.CodeStateConflict, "tag has already been claimed"))
	}

	tag.Status = enums.TagStatusActive
	tag.PetID = &pet.ID
	tag.OwnerID = &ownerID

	// Contact details ride along on the activation form. The claim itself
	// has already succeeded, so a failed upsert is logged, not returned.
	if s.profiles != nil && (trimmed(input.DisplayName) != "" || trimmed(input.Phone) != "") {
		if _, err := s.profiles.Update(ctx, ownerID, profiles.UpdateInput{
			DisplayName: input.DisplayName,
			Phone:       input.Phone,
		}); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithTagID(ctx, tag.ID.String()), "owner contact upsert failed during claim")
		}
	}

	if s.cache != nil {
		if err := s.cache.Del(ctx, s.cache.ActivationCacheKey(token)); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithTagID(ctx, tag.ID.String()), "preview cache invalidation failed")
		}
	}

	return &ClaimResultDTO{Tag: *FromModel(tag), Pet: *pet}, nil
}

func trimmed(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}

func (s *service) compensate(ctx context.Context, petID uuid.UUID, cause error) error {
	if err := s.pets.DeleteUnchecked(ctx, petID); err != nil {
		combined := multierr.Append(cause, err)
		return pkgerrors.Wrap(pkgerrors.CodePartial, combined, "claim failed and pet cleanup failed").
			WithDetails(map[string]string{"orphaned_pet_id": petID.String()})
	}
	return cause
}

func (s *service) ListForOwner(ctx context.Context, ownerID uuid.UUID) ([]TagDTO, error) {
	rows, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tags")
	}
	out := make([]TagDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

// Provision mints count fresh tags with random activation tokens. A token
// collision inside the batch surfaces as a unique violation, in which case
// the whole batch is regenerated and retried.
func (s *service) Provision(ctx context.Context, count int) ([]string, error) {
	if count <= 0 || count > maxProvisionBatchLen {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("count must be between 1 and %d", maxProvisionBatchLen))
	}

	var lastErr error
	for attempt := 0; attempt < provisionBatchTries; attempt++ {
		batch := make([]*models.Tag, 0, count)
		tokens := make([]string, 0, count)
		for i := 0; i < count; i++ {
			token, err := publicid.GenerateActivationToken()
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate activation token")
			}
			batch = append(batch, &models.Tag{
				ActivationToken: token,
				Status:          enums.TagStatusUnclaimed,
			})
			tokens = append(tokens, token)
		}

		if err := s.repo.CreateBatch(ctx, batch); err != nil {
			if db.IsUniqueViolation(err, "") {
				lastErr = err
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist tag batch")
		}
		return tokens, nil
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, lastErr, "token collisions across retries")
}
