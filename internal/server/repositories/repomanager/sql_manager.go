// Package repomanager provides a concrete RepositoryManager for the SQL
// metadata store, wiring together repository constructors and database
// migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophdrive/internal/dbx"
	"github.com/dmitrijs2005/gophdrive/internal/logging"
	"github.com/dmitrijs2005/gophdrive/internal/server/migrations"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/files"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/folders"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/versions"
	"github.com/pressly/goose/v3"
)

// SQLRepositoryManager vends SQL-backed repository implementations and
// exposes a schema migration hook for the configured driver.
type SQLRepositoryManager struct {
	driver string
	logger logging.Logger
}

// Folders returns a folders.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) Folders(db dbx.DBTX) folders.Repository {
	return folders.NewSQLRepository(db)
}

// Files returns a files.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) Files(db dbx.DBTX) files.Repository {
	return files.NewSQLRepository(db)
}

// Versions returns a versions.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) Versions(db dbx.DBTX) versions.Repository {
	return versions.NewSQLRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// migrationDir maps a driver to its directory inside migrations.Migrations.
func migrationDir(driver string) string {
	if driver == dbx.DriverSQLite {
		return migrations.DirSQLite
	}
	return migrations.DirPostgres
}

// gooseLogger routes goose's progress output into a logging.Logger.
type gooseLogger struct {
	ctx    context.Context
	logger logging.Logger
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.logger.Debug(l.ctx, strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "migrations")
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(l.ctx, strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "migrations")
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	logger := m.logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	goose.SetLogger(gooseLogger{ctx: ctx, logger: logger})
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(dbx.Dialect(m.driver)); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, migrationDir(m.driver)); err != nil {
		return err
	}
	return nil
}

// NewSQLRepositoryManager constructs a RepositoryManager for driver
// (dbx.DriverPostgres or dbx.DriverSQLite). Migration output goes to
// logger at debug level.
func NewSQLRepositoryManager(driver string, logger logging.Logger) (RepositoryManager, error) {
	switch driver {
	case dbx.DriverPostgres, dbx.DriverSQLite:
		return &SQLRepositoryManager{driver: driver, logger: logger}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}
