package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pawtagapp/pawtag-backend/api/controllers"
	"github.com/pawtagapp/pawtag-backend/api/routes"
	"github.com/pawtagapp/pawtag-backend/internal/abuse"
	"github.com/pawtagapp/pawtag-backend/internal/alerts"
	"github.com/pawtagapp/pawtag-backend/internal/auth"
	"github.com/pawtagapp/pawtag-backend/internal/documents"
	"github.com/pawtagapp/pawtag-backend/internal/pets"
	"github.com/pawtagapp/pawtag-backend/internal/profiles"
	"github.com/pawtagapp/pawtag-backend/internal/tags"
	"github.com/pawtagapp/pawtag-backend/internal/users"
	"github.com/pawtagapp/pawtag-backend/pkg/auth/session"
	"github.com/pawtagapp/pawtag-backend/pkg/config"
	"github.com/pawtagapp/pawtag-backend/pkg/db"
	"github.com/pawtagapp/pawtag-backend/pkg/logger"
	"github.com/pawtagapp/pawtag-backend/pkg/metrics"
	"github.com/pawtagapp/pawtag-backend/pkg/migrate"
	"github.com/pawtagapp/pawtag-backend/pkg/redis"
	"github.com/pawtagapp/pawtag-backend/pkg/storage/gcs"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap cloud storage", err)
		os.Exit(1)
	}

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(dbClient.DB()),
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	petService, err := pets.NewService(pets.NewRepository(dbClient.DB()), cfg.Tags.PublicIDAttempts)
	if err != nil {
		logg.Error(context.Background(), "failed to create pet service", err)
		os.Exit(1)
	}

	profileRepo := profiles.NewRepository(dbClient.DB())
	profileService, err := profiles.NewService(profileRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create profile service", err)
		os.Exit(1)
	}

	tagService, err := tags.NewService(tags.NewRepository(dbClient.DB()), petService, profileService, redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create tag service", err)
		os.Exit(1)
	}

	alertRepo := alerts.NewRepository(dbClient.DB())
	engine, err := abuse.NewEngine(cfg.AbuseControl, cfg.Alerts, newRateLimiter(cfg.AbuseControl, redisClient), alertRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create abuse engine", err)
		os.Exit(1)
	}

	alertService, err := alerts.NewService(alertRepo, pets.NewRepository(dbClient.DB()), profileRepo, engine, cfg.Alerts, cfg.AbuseControl, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create alert service", err)
		os.Exit(1)
	}

	documentService, err := documents.NewService(
		documents.NewRepository(dbClient.DB()),
		pets.NewRepository(dbClient.DB()),
		gcsClient,
		cfg.GCS.BucketName,
		cfg.GCS,
		cfg.Documents,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create document service", err)
		os.Exit(1)
	}

	httpMetrics := metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:      cfg,
			Logger:      logg,
			Redis:       redisClient,
			Sessions:    sessionManager,
			HTTPMetrics: httpMetrics,
			ReadyChecks: map[string]controllers.Pinger{
				"database": dbClient,
				"redis":    redisClient,
				"storage":  gcsClient,
			},
			AuthService:     authService,
			PetService:      petService,
			TagService:      tagService,
			AlertService:    alertService,
			ProfileService:  profileService,
			DocumentService: documentService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

// newRateLimiter picks the shared Redis windows in normal deployments and the
// in-process limiter for single-instance or offline setups. The in-process
// variant needs a sweeper so idle keys do not pile up.
func newRateLimiter(cfg config.AbuseControlConfig, redisClient *redis.Client) abuse.RateLimiter {
	if cfg.UseRedisLimiter && redisClient != nil {
		return abuse.NewRedisLimiter(redisClient)
	}

	limiter := abuse.NewSlidingWindowLimiter()
	go func() {
		ticker := time.NewTicker(cfg.Window)
		defer ticker.Stop()
		for range ticker.C {
			limiter.Sweep(cfg.Window)
		}
	}()
	return limiter
}
