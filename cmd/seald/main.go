package main

import (
	"context"
	"log"

	"seald/internal/config"
	"seald/internal/infra/db"
	httpinfra "seald/internal/infra/http"
	"seald/internal/logging"
)

func main() {
	cfg := config.FromEnv()
	logger := logging.New(cfg.LogLevel)

	store, err := db.NewStore(cfg)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}
	if store != nil && store.DB != nil {
		if err := store.Migrate(); err != nil {
			log.Fatalf("failed to migrate: %v", err)
		}
	}

	srv, err := httpinfra.NewServer(cfg, store, logger)
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Sweeper().Run(ctx)

	if err := srv.Run(); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
