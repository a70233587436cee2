// Package main provides the entry point for the portal API server.
package main

import (
	"context"
	"os"
	"time"

	"github.com/papeesearch/portal/internal/api"
	"github.com/papeesearch/portal/internal/auth"
	"github.com/papeesearch/portal/internal/feed"
	"github.com/papeesearch/portal/internal/shutdown"
	"github.com/papeesearch/portal/internal/store"
	"github.com/papeesearch/portal/internal/store/memory"
	pgstore "github.com/papeesearch/portal/internal/store/postgres"
	"github.com/papeesearch/portal/pkg/config"
	"github.com/papeesearch/portal/pkg/idtoken"
	"github.com/papeesearch/portal/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Default().Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.FromConfig(cfg.Log.Level, cfg.Log.Format)

	codec, err := idtoken.New(cfg.ObfuscatorConfig(), log.Logger)
	if err != nil {
		log.Error("failed to initialize id obfuscator", "error", err)
		os.Exit(1)
	}

	// Initialize storage
	var st store.Store
	switch cfg.Storage {
	case config.StorageMemory:
		log.Warn("using in-memory storage, data is lost on restart")
		st = memory.New()
	default:
		pg, err := pgstore.NewPostgresStore(pgstore.DefaultConfig(cfg.DatabaseDSN), log.Logger)
		if err != nil {
			log.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		migrateCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err = pg.Migrate(migrateCtx)
		cancel()
		if err != nil {
			log.Error("failed to migrate database", "error", err)
			pg.Close()
			os.Exit(1)
		}
		st = pg
	}

	// Initialize auth services
	authService := auth.NewService(&auth.Config{
		JWTSecret:   []byte(cfg.JWTSecret),
		TokenExpiry: cfg.JWTExpiry,
	}, log.Logger)

	catalog := auth.DefaultCatalog()
	if cfg.PermissionsFile != "" {
		catalog, err = auth.LoadCatalog(cfg.PermissionsFile)
		if err != nil {
			log.Error("failed to load permission catalog", "path", cfg.PermissionsFile, "error", err)
			os.Exit(1)
		}
	}
	rbac := auth.NewRBACService(st, authService, catalog, log.Logger)

	broker := feed.NewBroker(log.Logger)

	server := api.NewServer(cfg, st, codec, authService, rbac, broker, log.Logger)

	// Stop order is the reverse of registration: feed, HTTP, store.
	coordinator := shutdown.NewCoordinator(
		shutdown.WithTimeout(cfg.ShutdownTimeout),
		shutdown.WithLogger(log.Logger),
	)
	coordinator.Register(shutdown.NewCloserComponent("store", st))
	coordinator.Register(shutdown.NewFuncComponent("http", server.Shutdown))
	coordinator.Register(shutdown.NewFuncComponent("feed", func(context.Context) error {
		broker.Close()
		return nil
	}))
	go coordinator.WaitForSignal()

	log.Info("starting portal API",
		"host", cfg.APIHost,
		"port", cfg.APIPort,
		"storage", cfg.Storage,
		"id_mode", codec.Mode(),
	)

	serveErr := server.Start()
	if serveErr != nil {
		log.Error("server error", "error", serveErr)
		coordinator.Shutdown()
	}

	code := coordinator.ExitCode()
	if serveErr != nil {
		code = 1
	}
	log.Info("server stopped", "exit_code", code)
	os.Exit(code)
}
