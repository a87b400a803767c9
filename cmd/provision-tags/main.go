package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/pawtagapp/pawtag-backend/internal/pets"
	"github.com/pawtagapp/pawtag-backend/internal/tags"
	"github.com/pawtagapp/pawtag-backend/pkg/config"
	"github.com/pawtagapp/pawtag-backend/pkg/db"
	"github.com/pawtagapp/pawtag-backend/pkg/logger"
)

// provision-tags mints a batch of unclaimed tags and prints their activation
// tokens, one per line, for the engraving pipeline.
func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "provision-tags"})

	_ = godotenv.Load()

	count := flag.Int("count", 100, "number of tags to provision")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "provision-tags",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	petSvc, err := pets.NewService(pets.NewRepository(dbClient.DB()), cfg.Tags.PublicIDAttempts)
	if err != nil {
		logg.Error(ctx, "failed to create pet service", err)
		os.Exit(1)
	}

	svc, err := tags.NewService(tags.NewRepository(dbClient.DB()), petSvc, nil, nil, logg)
	if err != nil {
		logg.Error(ctx, "failed to create tag service", err)
		os.Exit(1)
	}

	tokens, err := svc.Provision(ctx, *count)
	if err != nil {
		logg.Error(ctx, "failed to provision tags", err)
		os.Exit(1)
	}

	for _, token := range tokens {
		fmt.Println(token)
	}

	logg.Info(logg.WithField(ctx, "count", len(tokens)), "tags provisioned")
}
