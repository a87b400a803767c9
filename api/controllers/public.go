package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pawtagapp/pawtag-backend/api/middleware"
	"github.com/pawtagapp/pawtag-backend/api/responses"
	"github.com/pawtagapp/pawtag-backend/api/validators"
	"github.com/pawtagapp/pawtag-backend/internal/abuse"
	"github.com/pawtagapp/pawtag-backend/internal/alerts"
	"github.com/pawtagapp/pawtag-backend/internal/pets"
	"github.com/pawtagapp/pawtag-backend/pkg/config"
	pkgerrors "github.com/pawtagapp/pawtag-backend/pkg/errors"
	"github.com/pawtagapp/pawtag-backend/pkg/logger"
)

const (
	finderIDCookie  = "finder_id"
	lastAlertCookie = "finder_last_alert_at"

	finderIDCookieTTL  = 180 * 24 * time.Hour
	lastAlertCookieTTL = 5 * time.Minute
)

// PublicPetProfile serves the page behind a tag scan. It only ever exposes
// the pet-facing fields; owner identity stays server side.
func PublicPetProfile(svc pets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pet service unavailable"))
			return
		}

		publicID := strings.TrimSpace(chi.URLParam(r, "publicID"))
		if publicID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "pet id is required"))
			return
		}

		profile, err := svc.PublicProfile(r.Context(), publicID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, profile)
	}
}

type foundReportRequest struct {
	Message     string `json:"message" validate:"required"`
	Phone       string `json:"phone,omitempty"`
	LocationURL string `json:"location_url,omitempty" validate:"omitempty,url"`

	// Website is the honeypot field. The form hides it; humans never fill it.
	Website string `json:"website,omitempty"`

	// FillTimeMS is how long the form was open, reported by the page script.
	FillTimeMS int64 `json:"fill_time_ms,omitempty" validate:"omitempty,min=0"`
}

// SubmitFoundReport accepts an anonymous finder alert. The response shape is
// the same whether the alert was stored or silently dropped, so automated
// probing learns nothing from the reply.
func SubmitFoundReport(svc alerts.Service, cfg config.AbuseControlConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "alert service unavailable"))
			return
		}

		publicID := strings.TrimSpace(chi.URLParam(r, "publicID"))
		if publicID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "pet id is required"))
			return
		}

		var req foundReportRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		finderID, fresh := finderIdentity(r)
		userAgent := r.UserAgent()

		result, err := svc.Submit(r.Context(), alerts.SubmitInput{
			PublicID:    publicID,
			Message:     req.Message,
			Phone:       req.Phone,
			LocationURL: req.LocationURL,
			Submission: abuse.Submission{
				PublicID:    publicID,
				Fingerprint: abuse.Fingerprint(middleware.ClientIP(r), userAgent, finderID),
				UserAgent:   userAgent,
				Message:     req.Message,
				Honeypot:    req.Website,
				FillTime:    time.Duration(req.FillTimeMS) * time.Millisecond,
				LastAlertAt: lastAlertAt(r),
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if fresh {
			http.SetCookie(w, &http.Cookie{
				Name:     finderIDCookie,
				Value:    finderID,
				Path:     "/",
				MaxAge:   int(finderIDCookieTTL.Seconds()),
				HttpOnly: true,
				Secure:   true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		http.SetCookie(w, &http.Cookie{
			Name:     lastAlertCookie,
			Value:    strconv.FormatInt(time.Now().UTC().Unix(), 10),
			Path:     "/",
			MaxAge:   int(lastAlertCookieTTL.Seconds()),
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteLaxMode,
		})

		responses.WriteSuccessStatus(w, http.StatusAccepted, result)
	}
}

// finderIdentity returns the browser's stable finder id, minting one when the
// cookie is absent. The second return reports whether it was just minted.
func finderIdentity(r *http.Request) (string, bool) {
	if c, err := r.Cookie(finderIDCookie); err == nil && c.Value != "" {
		return c.Value, false
	}
	return uuid.NewString(), true
}

func lastAlertAt(r *http.Request) *time.Time {
	c, err := r.Cookie(lastAlertCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	unix, err := strconv.ParseInt(c.Value, 10, 64)
	if err != nil {
		return nil
	}
	at := time.Unix(unix, 0).UTC()
	return &at
}
