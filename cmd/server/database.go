package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/phrazzld/atom-todo-api/internal/config"
	"github.com/phrazzld/atom-todo-api/internal/platform/docschema"
	"github.com/phrazzld/atom-todo-api/internal/platform/migrate"
	"github.com/phrazzld/atom-todo-api/internal/platform/postgres"
	"github.com/phrazzld/atom-todo-api/internal/platform/sqlite"
	"github.com/phrazzld/atom-todo-api/internal/store"
	"github.com/pressly/goose/v3/database"
)

// Supported values of database.driver.
const (
	driverPostgres = "postgres"
	driverSQLite   = "sqlite"
)

// dbConnectTimeout bounds the initial ping.
const dbConnectTimeout = 5 * time.Second

// setupAppDatabase opens the configured backend and verifies the connection.
func setupAppDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*sql.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, dbConnectTimeout)
	defer cancel()

	switch cfg.Driver {
	case driverSQLite:
		db, err := sqlite.Open(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		logger.Info("Database connection established", slog.String("driver", cfg.Driver))
		return db, nil

	case driverPostgres:
		db, err := sql.Open("pgx", cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database connection: %w", err)
		}

		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}

		logger.Info("Database connection established", slog.String("driver", cfg.Driver))
		return db, nil
	}

	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// migrationSource returns the goose dialect and embedded migrations of driver.
func migrationSource(driver string) (database.Dialect, fs.FS, error) {
	switch driver {
	case driverPostgres:
		return database.DialectPostgres, postgres.Migrations(), nil
	case driverSQLite:
		return database.DialectSQLite3, sqlite.Migrations(), nil
	}
	return "", nil, fmt.Errorf("unsupported database driver %q", driver)
}

// newMigrator creates a migrator for the configured backend.
func newMigrator(db *sql.DB, driver string, logger *slog.Logger) (*migrate.Migrator, error) {
	dialect, fsys, err := migrationSource(driver)
	if err != nil {
		return nil, err
	}
	return migrate.New(db, dialect, fsys, logger)
}

// newStores builds the user and task stores of the configured backend.
func newStores(
	db *sql.DB,
	driver string,
	schemas *docschema.Validator,
	logger *slog.Logger,
) (store.UserStore, store.TaskStore, error) {
	switch driver {
	case driverPostgres:
		return postgres.NewPostgresUserStore(db, schemas, logger),
			postgres.NewPostgresTaskStore(db, schemas, logger), nil
	case driverSQLite:
		return sqlite.NewUserStore(db, schemas, logger),
			sqlite.NewTaskStore(db, schemas, logger), nil
	}
	return nil, nil, fmt.Errorf("unsupported database driver %q", driver)
}
