// Package migrate applies the embedded SQL migrations of a storage backend
// using goose. Both the postgres and sqlite backends ship their migrations
// as an fs.FS and share this runner.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
)

// TableName is the table goose uses to track applied migrations.
const TableName = "schema_migrations"

// Supported commands for Run.
const (
	CommandUp      = "up"
	CommandDown    = "down"
	CommandStatus  = "status"
	CommandVersion = "version"
)

// ErrUnknownCommand is returned by Run for commands it does not support.
var ErrUnknownCommand = errors.New("unknown migration command")

// Status describes a single migration.
type Status struct {
	Version   int64
	Path      string
	Applied   bool
	AppliedAt time.Time
}

// Migrator runs migrations against one database.
type Migrator struct {
	provider *goose.Provider
	logger   *slog.Logger
}

// New creates a Migrator for db. fsys must contain the .sql files at its root.
func New(db *sql.DB, dialect database.Dialect, fsys fs.FS, log *slog.Logger) (*Migrator, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	if fsys == nil {
		return nil, errors.New("migrations filesystem cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "migrations"), slog.String("dialect", string(dialect)))

	versionStore, err := database.NewStore(dialect, TableName)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration version store: %w", err)
	}

	provider, err := goose.NewProvider("", db, fsys,
		goose.WithStore(versionStore),
		goose.WithLogger(&slogGooseLogger{logger: log}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}

	return &Migrator{provider: provider, logger: log}, nil
}

// Up applies every pending migration and returns how many were applied.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	start := time.Now()
	results, err := m.provider.Up(ctx)
	if err != nil {
		m.logger.Error("migration up failed",
			slog.String("error", err.Error()),
			slog.Int("applied", len(results)))
		return len(results), fmt.Errorf("failed to apply migrations: %w", err)
	}

	for _, r := range results {
		m.logger.Info("applied migration",
			slog.Int64("version", r.Source.Version),
			slog.String("path", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()))
	}
	m.logger.Info("migrations up to date",
		slog.Int("applied", len(results)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return len(results), nil
}

// Down rolls back the most recently applied migration.
func (m *Migrator) Down(ctx context.Context) error {
	result, err := m.provider.Down(ctx)
	if err != nil {
		m.logger.Error("migration down failed", slog.String("error", err.Error()))
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	m.logger.Info("rolled back migration",
		slog.Int64("version", result.Source.Version),
		slog.String("path", result.Source.Path))
	return nil
}

// Status lists every known migration in version order.
func (m *Migrator) Status(ctx context.Context) ([]Status, error) {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration status: %w", err)
	}

	out := make([]Status, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, Status{
			Version:   s.Source.Version,
			Path:      s.Source.Path,
			Applied:   s.State == goose.StateApplied,
			AppliedAt: s.AppliedAt,
		})
	}
	return out, nil
}

// Version returns the current database version (0 when nothing is applied).
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	version, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read database version: %w", err)
	}
	return version, nil
}

// Run executes command and writes a human-readable report to w.
func (m *Migrator) Run(ctx context.Context, command string, w io.Writer) error {
	switch command {
	case CommandUp:
		applied, err := m.Up(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "applied %d migration(s)\n", applied)
		return err

	case CommandDown:
		if err := m.Down(ctx); err != nil {
			return err
		}
		_, err := fmt.Fprintln(w, "rolled back 1 migration")
		return err

	case CommandStatus:
		statuses, err := m.Status(ctx)
		if err != nil {
			return err
		}
		for _, s := range statuses {
			applied := "pending"
			if s.Applied {
				applied = s.AppliedAt.UTC().Format(time.RFC3339)
			}
			if _, err := fmt.Fprintf(w, "%-8d %-40s %s\n", s.Version, s.Path, applied); err != nil {
				return err
			}
		}
		return nil

	case CommandVersion:
		version, err := m.Version(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "version %d\n", version)
		return err
	}

	return fmt.Errorf("%w: %q", ErrUnknownCommand, command)
}

// slogGooseLogger adapts the goose logger interface to slog.
type slogGooseLogger struct {
	logger *slog.Logger
}

// Printf forwards goose progress messages at INFO.
func (l *slogGooseLogger) Printf(format string, v ...any) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Fatalf logs at ERROR. Unlike the goose default it does not exit; failures
// are returned to the caller as errors.
func (l *slogGooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
