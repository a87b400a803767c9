package controllers

import (
	"net/http"

	"github.com/pawtagapp/pawtag-backend/api/responses"
	"github.com/pawtagapp/pawtag-backend/internal/alerts"
	pkgerrors "github.com/pawtagapp/pawtag-backend/pkg/errors"
	"github.com/pawtagapp/pawtag-backend/pkg/logger"
)

// ListAlerts returns the owner's inbox, newest first.
func ListAlerts(svc alerts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "alert service unavailable"))
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

func DeleteAlert(svc alerts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "alert service unavailable"))
			return
		}

		owner, err := ownerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		alertID, err := pathUUID(r, "alertID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), owner, alertID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
