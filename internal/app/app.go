// Package app initializes and orchestrates the main components of the
// application: configuration, storage, the review pipeline, and the HTTP
// server that feeds it webhook events.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tribunal-dev/tribunal/internal/config"
	"github.com/tribunal-dev/tribunal/internal/core"
	"github.com/tribunal-dev/tribunal/internal/db"
	"github.com/tribunal-dev/tribunal/internal/delivery"
	"github.com/tribunal-dev/tribunal/internal/gitutil"
	"github.com/tribunal-dev/tribunal/internal/jobs"
	"github.com/tribunal-dev/tribunal/internal/server"
	"github.com/tribunal-dev/tribunal/internal/storage"
)

// App holds the main application components.
type App struct {
	ctx        context.Context
	cfg        *config.Config
	server     *server.Server
	logger     *slog.Logger
	dispatcher core.JobDispatcher
	dbCleanup  func()
}

// NewApp sets up the application with all its dependencies.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.ValidateServer(); err != nil {
		return nil, err
	}

	logger.Info("initializing tribunal",
		"runner", cfg.Runner.Bin,
		"max_workers", cfg.MaxWorkers,
		"db", cfg.DB != nil)

	// Delivery records and run history live in Postgres when configured,
	// otherwise on disk next to the run artifacts.
	var (
		store     storage.Store
		records   delivery.RecordStore
		dbCleanup = func() {}
	)
	if cfg.DB != nil {
		conn, cleanup, err := db.NewDatabase(cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		dbCleanup = cleanup
		store = storage.NewStore(conn.DB)
		records = storage.NewRecordStore(store)
	} else {
		records = storage.NewFileRecordStore(cfg.ArtifactDir)
	}

	git := gitutil.NewClient(logger)
	pipeline := jobs.NewPipeline(cfg, git, records, logger)
	reviewJob := jobs.NewReviewJob(cfg, pipeline, store, logger)
	dispatcher := jobs.NewDispatcher(reviewJob, cfg.MaxWorkers, logger)
	httpServer := server.NewServer(ctx, cfg, dispatcher, logger)

	logger.Info("tribunal initialized")
	return &App{
		ctx:        ctx,
		cfg:        cfg,
		server:     httpServer,
		logger:     logger,
		dispatcher: dispatcher,
		dbCleanup:  dbCleanup,
	}, nil
}

// Start runs the HTTP server.
func (a *App) Start() error {
	a.logger.Info("starting tribunal",
		"server_port", a.cfg.ServerPort,
		"max_workers", a.cfg.MaxWorkers)

	if err := a.server.Start(); err != nil {
		a.logger.Error("failed to start HTTP server", "error", err)
		return err
	}
	return nil
}

// Stop shuts down the application cleanly.
func (a *App) Stop() error {
	a.logger.Info("shutting down tribunal services")

	// Stop the HTTP server first to prevent new incoming requests.
	serverErr := a.server.Stop()
	if serverErr != nil {
		a.logger.Error("error during HTTP server shutdown", "error", serverErr)
		// Continue to stop other components even if the server failed.
	}

	// Stop the job dispatcher, allowing in-flight jobs to finish.
	a.dispatcher.Stop()

	a.dbCleanup()

	if serverErr != nil {
		a.logger.Error("tribunal stopped with errors", "error", serverErr)
		return serverErr
	}

	a.logger.Info("tribunal stopped")
	return nil
}
