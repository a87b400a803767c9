package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pawtagapp/pawtag-backend/api/responses"
	"github.com/pawtagapp/pawtag-backend/api/validators"
	"github.com/pawtagapp/pawtag-backend/internal/pets"
	"github.com/pawtagapp/pawtag-backend/internal/tags"
	pkgerrors "github.com/pawtagapp/pawtag-backend/pkg/errors"
	"github.com/pawtagapp/pawtag-backend/pkg/logger"
)

type claimTagRequest struct {
	PetName  string  `json:"pet_name" validate:"required,min=1,max=100"`
	AgeYears *int    `json:"age_years,omitempty" validate:"omitempty,min=0,max=50"`
	Breed    *string `json:"breed,omitempty" validate:"omitempty,max=100"`
	Notes    *string `json:"notes,omitempty" validate:"omitempty,max=2000"`

	// The activation form also collects the owner's contact card, so a
	// first-time owner does not need a second trip to the profile page.
	DisplayName *string `json:"display_name,omitempty" validate:"omitempty,max=100"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

// TagPreview answers the anonymous activation page: can this token still be
// claimed. It never reveals who, if anyone, holds the tag.
func TagPreview(svc tags.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tag service unavailable"))
			return
		}

		token := strings.TrimSpace(chi.URLParam(r, "token"))
		if token == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "activation token is required"))
			return
		}

		preview, err := svc.Preview(r.Context(), token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, preview)
	}
}

// ClaimTag binds an unclaimed tag to the caller, creating the pet profile in
// the same operation.
func ClaimTag(svc tags.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tag service unavailable"))
			return
		}

		owner, err := ownerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		token := strings.TrimSpace(chi.URLParam(r, "token"))
		if token == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "activation token is required"))
			return
		}

		var req claimTagRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Claim(r.Context(), owner, token, tags.ClaimInput{
			Pet: pets.CreatePetInput{
				Name:     req.PetName,
				AgeYears: req.AgeYears,
				Breed:    req.Breed,
				Notes:    req.Notes,
			},
			DisplayName: req.DisplayName,
			Phone:       req.Phone,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func ListTags(svc tags.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tag service unavailable"))
			return
		}

		owner, err := ownerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListForOwner(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}
