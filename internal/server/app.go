// Package server wires the storage engine together: configuration, logging,
// the metadata database with its migrations, the physical storage backend
// and the services built on top of them.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophdrive/internal/dbx"
	"github.com/dmitrijs2005/gophdrive/internal/logging"
	"github.com/dmitrijs2005/gophdrive/internal/server/config"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophdrive/internal/server/services"
	"github.com/dmitrijs2005/gophdrive/internal/server/storage"
)

type App struct {
	Config   *config.Config
	Logger   logging.Logger
	Store    *storage.Store
	Paths    *services.PathResolver
	Versions *services.VersionManager
	Quota    *services.QuotaTracker
	Search   *services.SearchIndex
	Tree     *services.TreeManager

	db *sql.DB
}

// newBackend is a test seam over the backend constructors.
var newBackend = func(ctx context.Context, c *config.Config) (storage.Backend, error) {
	switch c.StorageBackend {
	case config.BackendLocal:
		return storage.NewLocalBackend(c.StorageRoot)
	case config.BackendS3:
		return storage.NewS3Backend(ctx, storage.S3Options{
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			Region:       c.S3Region,
			Bucket:       c.S3Bucket,
			BaseEndpoint: c.S3BaseEndpoint,
		})
	case config.BackendB2:
		return storage.NewB2Backend(ctx, storage.B2Options{
			KeyID:          c.B2KeyID,
			ApplicationKey: c.B2ApplicationKey,
			Bucket:         c.B2Bucket,
		})
	}
	return nil, fmt.Errorf("unsupported storage backend %q", c.StorageBackend)
}

// NewApp validates c, opens and migrates the metadata database, connects
// the storage backend and constructs the services.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.NewJSONLogger(os.Stderr, c.LogLevel)

	db, err := dbx.Open(ctx, c.DatabaseDriver, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app, err := newApp(ctx, c, logger, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger, db *sql.DB) (*App, error) {
	rm, err := repomanager.NewSQLRepositoryManager(c.DatabaseDriver, logger)
	if err != nil {
		return nil, err
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	backend, err := newBackend(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}
	store, err := storage.NewStore(backend, c.ChecksumAlgorithm)
	if err != nil {
		return nil, err
	}

	paths := services.NewPathResolver(db, rm, c.MaxTreeDepth)
	versions := services.NewVersionManager(db, rm, store)
	quota := services.NewQuotaTracker(db, rm, c.QuotaFor)

	app := &App{
		Config:   c,
		Logger:   logger,
		Store:    store,
		Paths:    paths,
		Versions: versions,
		Quota:    quota,
		Search:   services.NewSearchIndex(db, rm),
		Tree:     services.NewTreeManager(db, rm, store, paths, versions, quota, c, logger),
		db:       db,
	}

	logger.Info(ctx, "storage engine ready",
		"driver", c.DatabaseDriver, "backend", c.StorageBackend, "checksum", c.ChecksumAlgorithm)
	return app, nil
}

// Close releases the database.
func (app *App) Close() error {
	return app.db.Close()
}
