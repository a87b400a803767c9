package middleware

import (
	"net/http"
	"strings"

	"github.com/pawtagapp/pawtag-backend/api/responses"
	pkgAuth "github.com/pawtagapp/pawtag-backend/pkg/auth"
	"github.com/pawtagapp/pawtag-backend/pkg/auth/session"
	"github.com/pawtagapp/pawtag-backend/pkg/config"
	pkgerrors "github.com/pawtagapp/pawtag-backend/pkg/errors"
	"github.com/pawtagapp/pawtag-backend/pkg/logger"
)

// Auth validates the bearer token, confirms the backing session is still
// live, and seeds the request context with the authenticated owner.
func Auth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			token := raw
			if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
				token = strings.TrimSpace(raw[len("bearer "):])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if claims.ID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid token"))
				return
			}

			if sessions != nil {
				ok, err := sessions.HasSession(r.Context(), claims.ID)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
					return
				}
				if !ok {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired"))
					return
				}
			}

			ctx := WithUserID(r.Context(), claims.UserID.String())
			ctx = WithSessionID(ctx, claims.ID)
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{"user_id": claims.UserID.String()})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
