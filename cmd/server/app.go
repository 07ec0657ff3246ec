package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/atom-todo-api/internal/api/middleware"
	"github.com/phrazzld/atom-todo-api/internal/config"
	"github.com/phrazzld/atom-todo-api/internal/events"
	"github.com/phrazzld/atom-todo-api/internal/platform/docschema"
	"github.com/phrazzld/atom-todo-api/internal/platform/metrics"
	"github.com/phrazzld/atom-todo-api/internal/service"
	"github.com/phrazzld/atom-todo-api/internal/service/auth"
	"github.com/phrazzld/atom-todo-api/internal/store"
	"github.com/phrazzld/atom-todo-api/internal/taskquery"
	"github.com/prometheus/client_golang/prometheus"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	userStore store.UserStore
	taskStore store.TaskStore

	jwtService  auth.JWTService
	userService service.UserService
	taskService service.TaskService

	eventEmitter *events.InMemoryEventEmitter
	metrics      *metrics.Metrics
	rateLimiter  *middleware.RateLimiter
}

// newApplication creates a new application instance with all dependencies initialized.
// The database connection must already be established; reg may be nil.
func newApplication(
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
	reg *prometheus.Registry,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		slog.Int("token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes))

	schemas, err := docschema.New()
	if err != nil {
		return nil, fmt.Errorf("failed to load document schemas: %w", err)
	}

	app.userStore, app.taskStore, err = newStores(db, cfg.Database.Driver, schemas, logger)
	if err != nil {
		return nil, err
	}

	app.metrics = metrics.New(reg)
	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(app.metrics)

	engine, err := taskquery.NewEngine(app.taskStore, logger,
		taskquery.WithLimits(taskquery.LimitsFromConfig(cfg.Query)),
		taskquery.WithFallbackObserver(app.metrics.ObserveFallback),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task query engine: %w", err)
	}

	app.userService, err = service.NewUserService(app.userStore, app.jwtService, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create user service: %w", err)
	}

	app.taskService, err = service.NewTaskService(app.taskStore, engine, app.eventEmitter, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	app.rateLimiter = middleware.NewRateLimiter(cfg.RateLimit)

	logger.Info("Application initialized successfully",
		slog.String("database_driver", cfg.Database.Driver))
	return app, nil
}

// Run starts the HTTP server and blocks until it shuts down.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", slog.String("error", err.Error()))
		}
	}
}
