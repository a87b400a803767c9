package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/pawtagapp/pawtag-backend/api/responses"
	pkgerrors "github.com/pawtagapp/pawtag-backend/pkg/errors"
	"github.com/pawtagapp/pawtag-backend/pkg/logger"
)

// Pinger is any dependency that can answer a liveness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady checks every named dependency with a short deadline. A single
// failing dependency fails the probe.
func HealthReady(deps map[string]Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]string{}
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				checks[name] = "down"
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable").
						WithDetails(checks))
				return
			}
			checks[name] = "up"
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
