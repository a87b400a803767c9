package alerts

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pawtagapp/pawtag-backend/internal/abuse"
	"github.com/pawtagapp/pawtag-backend/pkg/config"
	"github.com/pawtagapp/pawtag-backend/pkg/db/models"
	pkgerrors "github.com/pawtagapp/pawtag-backend/pkg/errors"
	"github.com/pawtagapp/pawtag-backend/pkg/logger"
)

type alertRepository interface {
	Create(ctx context.Context, alert *models.Alert) (*models.Alert, error)
	ListForOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.Alert, error)
	DeleteForOwner(ctx context.Context, alertID, ownerID uuid.UUID) (int64, error)
}

type petReader interface {
	FindByPublicID(ctx context.Context, publicID string) (*models.Pet, error)
}

type profileReader interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.OwnerProfile, error)
}

type abuseEngine interface {
	Evaluate(ctx context.Context, sub abuse.Submission) (abuse.Decision, error)
}

// Service runs the finder submission pipeline and the owner's inbox.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*SubmitResultDTO, error)
	ListForOwner(ctx context.Context, ownerID uuid.UUID) ([]AlertDTO, error)
	Delete(ctx context.Context, ownerID, alertID uuid.UUID) error
}

// SubmitInput is the anonymous finder form plus the request metadata the
// abuse engine needs.
type SubmitInput struct {
	PublicID    string
	Message     string
	Phone       string
	LocationURL string
	Submission  abuse.Submission
}

type service struct {
	repo          alertRepository
	pets          petReader
	profiles      profileReader
	engine        abuseEngine
	inboxLimit    int
	locationHosts []string
	logg          *logger.Logger
}

// NewService assembles the alert pipeline.
func NewService(repo alertRepository, pets petReader, profiles profileReader, engine abuseEngine, cfg config.AlertsConfig, abuseCfg config.AbuseControlConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("alert repository required")
	}
	if pets == nil {
		return nil, fmt.Errorf("pet reader required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile reader required")
	}
	if engine == nil {
		return nil, fmt.Errorf("abuse engine required")
	}
	return &service{
		repo:          repo,
		pets:          pets,
		profiles:      profiles,
		engine:        engine,
		inboxLimit:    cfg.InboxLimit,
		locationHosts: abuseCfg.LocationHosts,
		logg:          logg,
	}, nil
}

// Submit runs the pipeline: resolve the pet, judge the submission, persist,
// then hand back the owner's contact links. Silently dropped submissions
// produce a response byte-identical to a recorded one.
func (s *service) Submit(ctx context.Context, input SubmitInput) (*SubmitResultDTO, error) {
	pet, err := s.pets.FindByPublicID(ctx, input.PublicID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pet not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup pet")
	}
	if !pet.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "this tag is currently inactive")
	}

	message := strings.TrimSpace(input.Message)

	// Structural checks on the optional fields come before the engine so a
	// malformed submission never burns rate-limit budget.
	var finderPhone string
	if strings.TrimSpace(input.Phone) != "" {
		finderPhone, err = NormalizePhone(input.Phone)
		if err != nil {
			return nil, err
		}
	}
	var locationURL string
	if strings.TrimSpace(input.LocationURL) != "" {
		locationURL, err = validateLocationURL(input.LocationURL, s.locationHosts)
		if err != nil {
			return nil, err
		}
	}

	sub := input.Submission
	sub.PublicID = input.PublicID
	sub.Message = message
	sub.Phone = finderPhone

	decision, err := s.engine.Evaluate(ctx, sub)
	if err != nil {
		return nil, err
	}

	switch decision.Outcome {
	case abuse.OutcomeReject:
		return nil, decision.Err
	case abuse.OutcomeSilentAccept:
		if s.logg != nil {
			s.logg.Info(s.logg.WithPetID(ctx, pet.ID.String()), "alert dropped silently")
		}
		return s.buildResult(ctx, pet, message, locationURL, finderPhone)
	}

	alert := &models.Alert{
		PetID:         pet.ID,
		PublicID:      pet.PublicID,
		FinderMessage: message,
	}
	if sub.UserAgent != "" {
		ua := sub.UserAgent
		alert.UserAgent = &ua
	}
	if finderPhone != "" {
		alert.FinderPhone = &finderPhone
	}
	if locationURL != "" {
		alert.FinderLocationURL = &locationURL
	}

	if _, err := s.repo.Create(ctx, alert); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record alert")
	}

	return s.buildResult(ctx, pet, message, locationURL, finderPhone)
}

func (s *service) buildResult(ctx context.Context, pet *models.Pet, message, locationURL, finderPhone string) (*SubmitResultDTO, error) {
	result := &SubmitResultDTO{PetName: pet.Name}

	profile, err := s.profiles.Get(ctx, pet.OwnerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return result, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup owner profile")
	}
	if profile.Phone == nil || *profile.Phone == "" {
		return result, nil
	}

	body := ComposeSMSBody(SMSContext{
		PetName:     pet.Name,
		Breed:       pet.Breed,
		AgeYears:    pet.AgeYears,
		Message:     message,
		LocationURL: locationURL,
		FinderPhone: finderPhone,
	})
	links, err := SynthesizeLinks(*profile.Phone, body)
	if err != nil {
		// A malformed stored phone should not sink the alert.
		if s.logg != nil {
			s.logg.Warn(s.logg.WithPetID(ctx, pet.ID.String()), "owner phone unusable for contact links")
		}
		return result, nil
	}
	result.Links = links
	return result, nil
}

func (s *service) ListForOwner(ctx context.Context, ownerID uuid.UUID) ([]AlertDTO, error) {
	rows, err := s.repo.ListForOwner(ctx, ownerID, s.inboxLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list alerts")
	}
	out := make([]AlertDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Delete(ctx context.Context, ownerID, alertID uuid.UUID) error {
	affected, err := s.repo.DeleteForOwner(ctx, alertID, ownerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete alert")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "alert not found")
	}
	return nil
}

// validateLocationURL accepts only https links to the configured map hosts.
// Allowlist entries are "host" or "host/path-prefix" (for shorteners like
// goo.gl/maps where the host alone is too broad).
func validateLocationURL(raw string, allowed []string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme != "https" || parsed.Host == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "location link must be an https map link")
	}

	host := strings.ToLower(parsed.Hostname())
	path := parsed.EscapedPath()
	for _, entry := range allowed {
		entryHost, entryPrefix, _ := strings.Cut(strings.ToLower(strings.TrimSpace(entry)), "/")
		if entryHost == "" || host != entryHost {
			continue
		}
		if entryPrefix != "" && !strings.HasPrefix(path, "/"+entryPrefix) {
			continue
		}
		return trimmed, nil
	}
	return "", pkgerrors.New(pkgerrors.CodeValidation, "location link must point at a known map service")
}
