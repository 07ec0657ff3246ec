// Package main implements the entry point for the to-do API server: a CRUD
// backend for tasks owned by users identified by email.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/phrazzld/atom-todo-api/internal/config"
	"github.com/phrazzld/atom-todo-api/internal/platform/logger"
	"github.com/phrazzld/atom-todo-api/internal/platform/migrate"
	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCommand builds the CLI. Running it without a subcommand starts the server.
func newRootCommand() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "todo-api",
		Short:         "To-do list API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configFile)
		},
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"path to a config file (default ./config.yaml when present)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runServe(cmd.Context(), configFile)
			},
		},
		&cobra.Command{
			Use:   "migrate <up|down|status|version>",
			Short: "Manage the database schema",
			ValidArgs: []string{
				migrate.CommandUp, migrate.CommandDown, migrate.CommandStatus, migrate.CommandVersion,
			},
			Args: cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigrate(cmd, configFile, args[0])
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the server version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), version)
			},
		},
	)

	return root
}

// bootstrap loads configuration, sets up logging and opens the database.
func bootstrap(ctx context.Context, configFile string) (*config.Config, *slog.Logger, *sql.DB, error) {
	cfg, err := loadAppConfig(configFile)
	if err != nil {
		return nil, nil, nil, err
	}

	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	l.Info("Server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("database_driver", cfg.Database.Driver))

	db, err := setupAppDatabase(ctx, cfg.Database, l)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to set up database: %w", err)
	}
	return cfg, l, db, nil
}

func loadAppConfig(configFile string) (*config.Config, error) {
	var opts []config.Option
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func runServe(ctx context.Context, configFile string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, l, db, err := bootstrap(ctx, configFile)
	if err != nil {
		return err
	}

	if cfg.Database.AutoMigrate {
		if err := autoMigrate(ctx, db, cfg.Database.Driver, l); err != nil {
			_ = db.Close()
			return err
		}
	}

	app, err := newApplication(cfg, l, db, nil)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}

func runMigrate(cmd *cobra.Command, configFile, command string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, l, db, err := bootstrap(ctx, configFile)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	m, err := newMigrator(db, cfg.Database.Driver, l)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	if err := m.Run(ctx, command, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("migrate %s failed: %w", command, err)
	}
	return nil
}

// autoMigrate applies pending migrations before the server starts.
func autoMigrate(ctx context.Context, db *sql.DB, driver string, l *slog.Logger) error {
	m, err := newMigrator(db, driver, l)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	applied, err := m.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	l.Info("Database schema up to date", slog.Int("applied", applied))
	return nil
}
