package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pawtagapp/pawtag-backend/api/controllers"
	"github.com/pawtagapp/pawtag-backend/api/middleware"
	"github.com/pawtagapp/pawtag-backend/internal/alerts"
	"github.com/pawtagapp/pawtag-backend/internal/auth"
	"github.com/pawtagapp/pawtag-backend/internal/documents"
	"github.com/pawtagapp/pawtag-backend/internal/pets"
	"github.com/pawtagapp/pawtag-backend/internal/profiles"
	"github.com/pawtagapp/pawtag-backend/internal/tags"
	"github.com/pawtagapp/pawtag-backend/pkg/auth/session"
	"github.com/pawtagapp/pawtag-backend/pkg/config"
	"github.com/pawtagapp/pawtag-backend/pkg/logger"
	"github.com/pawtagapp/pawtag-backend/pkg/metrics"
	"github.com/pawtagapp/pawtag-backend/pkg/redis"
)

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Redis       *redis.Client
	Sessions    session.AccessSessionChecker
	HTTPMetrics *metrics.HTTPMetrics

	ReadyChecks map[string]controllers.Pinger

	AuthService     auth.Service
	PetService      pets.Service
	TagService      tags.Service
	AlertService    alerts.Service
	ProfileService  profiles.Service
	DocumentService documents.Service
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)
	if d.HTTPMetrics != nil {
		r.Use(d.HTTPMetrics.Middleware())
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(d.ReadyChecks, logg))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Anonymous surface: tag scans, activation previews, finder reports.
	r.Route("/api/v1/public", func(r chi.Router) {
		r.Get("/pets/{publicID}", controllers.PublicPetProfile(d.PetService, logg))
		r.Post("/pets/{publicID}/found", controllers.SubmitFoundReport(d.AlertService, cfg.AbuseControl, logg))
		r.Get("/tags/{token}", controllers.TagPreview(d.TagService, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, d.Redis, logg)).Post("/register", controllers.Register(d.AuthService, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, d.Redis, logg)).Post("/login", controllers.Login(d.AuthService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))

		r.Post("/auth/logout", controllers.Logout(d.AuthService, logg))

		r.Post("/tags/{token}/claim", controllers.ClaimTag(d.TagService, logg))
		r.Get("/tags", controllers.ListTags(d.TagService, logg))

		r.Route("/pets", func(r chi.Router) {
			r.Get("/", controllers.ListPets(d.PetService, logg))
			r.Post("/", controllers.CreatePet(d.PetService, logg))
			r.Route("/{petID}", func(r chi.Router) {
				r.Get("/", controllers.GetPet(d.PetService, logg))
				r.Patch("/", controllers.UpdatePet(d.PetService, logg))
				r.Delete("/", controllers.DeletePet(d.PetService, logg))

				r.Route("/documents", func(r chi.Router) {
					r.Get("/", controllers.ListPetDocuments(d.DocumentService, logg))
					r.Post("/", controllers.RequestDocumentUpload(d.DocumentService, logg))
				})
			})
		})

		r.Route("/documents/{documentID}", func(r chi.Router) {
			r.Get("/download", controllers.DocumentDownloadURL(d.DocumentService, logg))
			r.Delete("/", controllers.DeleteDocument(d.DocumentService, logg))
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", controllers.ListAlerts(d.AlertService, logg))
			r.Delete("/{alertID}", controllers.DeleteAlert(d.AlertService, logg))
		})

		r.Route("/profile", func(r chi.Router) {
			r.Get("/", controllers.GetProfile(d.ProfileService, logg))
			r.Put("/", controllers.UpdateProfile(d.ProfileService, logg))
		})
	})

	return r
}
