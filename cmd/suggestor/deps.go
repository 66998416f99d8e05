package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/ersonp/suggestor/internal/application/handlers"
	"github.com/ersonp/suggestor/internal/domain/ports"
	"github.com/ersonp/suggestor/internal/domain/services"
	"github.com/ersonp/suggestor/internal/infrastructure/config"
	"github.com/ersonp/suggestor/internal/infrastructure/logging"
	"github.com/ersonp/suggestor/internal/infrastructure/relationaldb/postgres"
	"github.com/ersonp/suggestor/internal/infrastructure/relationaldb/sqlite"
	"github.com/ersonp/suggestor/internal/infrastructure/wikiapi/mediawiki"
)

// Deps holds high-level dependencies for commands.
// Only handlers are exposed - services and repositories are internal.
type Deps struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Reviews *handlers.ReviewHandler
}

// editRepository is a store backend serving both edits and the audit log.
type editRepository interface {
	ports.EditStore
	ports.AuditLog
}

// newWikiAPI builds the wiki client (can be replaced in tests).
var newWikiAPI = func(cfg config.WikiConfig, logger zerolog.Logger) ports.WikiAPI {
	return mediawiki.NewClient(cfg, nil, logger)
}

// withDeps loads config and builds dependencies, then calls the provided function.
// It handles cleanup automatically.
func withDeps(ctx context.Context, fn func(*Deps) error) error {
	basePath, err := baseDir()
	if err != nil {
		return err
	}

	cfg, err := config.Load(basePath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("configuring logging: %w", err)
	}

	repo, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer repo.Close()

	// Ensure schema exists
	if err := repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}

	api := newWikiAPI(cfg.Wiki, logger)
	gate := services.NewTokenGate(api, logger)
	deps := &Deps{
		Config: cfg,
		Logger: logger,
		Reviews: handlers.NewReviewHandler(
			services.NewSubmissionService(repo, repo, logger),
			services.NewReviewService(repo, repo, api, gate, logger),
			gate,
			repo,
		),
	}

	return fn(deps)
}

// openStore connects to the backend selected by cfg.Driver.
func openStore(ctx context.Context, cfg config.StoreConfig) (editRepository, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		repo, err := postgres.NewRepository(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("creating postgres repository: %w", err)
		}
		return repo, nil
	case config.DriverSQLite, "":
		repo, err := sqlite.NewRepository(cfg.SQLite)
		if err != nil {
			return nil, fmt.Errorf("creating sqlite repository: %w", err)
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func baseDir() (string, error) {
	if globalDir != "" {
		return globalDir, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	return cwd, nil
}
