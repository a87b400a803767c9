package controllers

import (
	"net/http"

	"github.com/pawtagapp/pawtag-backend/api/responses"
	"github.com/pawtagapp/pawtag-backend/api/validators"
	"github.com/pawtagapp/pawtag-backend/internal/pets"
	pkgerrors "github.com/pawtagapp/pawtag-backend/pkg/errors"
	"github.com/pawtagapp/pawtag-backend/pkg/logger"
)

type petCreateRequest struct {
	Name     string  `json:"name" validate:"required,min=1,max=100"`
	AgeYears *int    `json:"age_years,omitempty" validate:"omitempty,min=0,max=50"`
	Breed    *string `json:"breed,omitempty" validate:"omitempty,max=100"`
	Notes    *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type petUpdateRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	AgeYears *int    `json:"age_years,omitempty" validate:"omitempty,min=0,max=50"`
	Breed    *string `json:"breed,omitempty" validate:"omitempty,max=100"`
	Notes    *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
	IsActive *bool   `json:"is_active,omitempty"`
}

func (r petUpdateRequest) toInput() pets.UpdatePetInput {
	return pets.UpdatePetInput{
		Name:     r.Name,
		AgeYears: r.AgeYears,
		Breed:    r.Breed,
		Notes:    r.Notes,
		IsActive: r.IsActive,
	}
}

// CreatePet registers a pet that is not (yet) bound to a tag. The profile
// gets a fresh public id either way, so a tag can be claimed onto it later.
func CreatePet(svc pets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pet service unavailable"))
			return
		}

		owner, err := ownerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req petCreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pet, err := svc.Create(r.Context(), owner, pets.CreatePetInput{
			Name:     req.Name,
			AgeYears: req.AgeYears,
			Breed:    req.Breed,
			Notes:    req.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, pet)
	}
}

func ListPets(svc pets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pet service unavailable"))
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

func GetPet(svc pets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pet service unavailable"))
			return
		}

		owner, err := ownerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		petID, err := pathUUID(r, "petID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pet, err := svc.GetForOwner(r.Context(), owner, petID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, pet)
	}
}

// UpdatePet applies a partial edit to an owned pet profile. Flipping
// is_active to false is how owners retire a tag without unclaiming it.
func UpdatePet(svc pets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pet service unavailable"))
			return
		}

		owner, err := ownerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		petID, err := pathUUID(r, "petID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req petUpdateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pet, err := svc.Update(r.Context(), owner, petID, req.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, pet)
	}
}

func DeletePet(svc pets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pet service unavailable"))
			return
		}

		owner, err := ownerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		petID, err := pathUUID(r, "petID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), owner, petID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
