// Package main provides the encounter server: the gRPC EncounterService, the
// read-only HTTP inspection API and, when enabled, NATS update broadcast.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/config"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file; empty = defaults and environment only")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	app, cleanup, err := initApp(ctx, cfg)
	if err != nil {
		log.Fatalf("initializing server: %v", err)
	}
	defer cleanup()

	app.logger.Info("encounter server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("grpc_addr", cfg.GRPC.Addr()),
		zap.String("http_addr", cfg.HTTP.Addr()),
		zap.String("outcome_store", cfg.Outcomes.Store),
		zap.Bool("nats", cfg.NATS.Enabled),
	)

	if err := app.Lifecycle().Run(ctx); err != nil {
		app.logger.Error("server error", zap.Error(err))
		cleanup()
		log.Fatalf("server error: %v", err)
	}
}
