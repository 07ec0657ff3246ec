package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/phrazzld/atom-todo-api/internal/api"
	"github.com/phrazzld/atom-todo-api/internal/api/middleware"
)

// corsMaxAgeSeconds is how long browsers may cache a preflight response.
const corsMaxAgeSeconds = 300

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewTraceMiddleware(app.logger))
	r.Use(middleware.RequestLogger)
	r.Use(app.metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: app.config.Server.CORSAllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", middleware.TraceHeader},
		ExposedHeaders: []string{middleware.TraceHeader},
		MaxAge:         corsMaxAgeSeconds,
	}))

	healthHandler := api.NewHealthHandler(app.db, app.logger)
	userHandler := api.NewUserHandler(app.userService, app.logger)
	taskHandler := api.NewTaskHandler(app.taskService, app.logger)
	authMiddleware := middleware.NewAuthMiddleware(app.jwtService)

	r.NotFound(api.NotFound)
	r.MethodNotAllowed(api.MethodNotAllowed)

	r.Get("/health", healthHandler.Live)
	r.Get("/metrics", app.metrics.Handler().ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.Ready)

		// Public user endpoints, limited per client IP.
		r.Group(func(r chi.Router) {
			r.Use(app.rateLimiter.Middleware)
			r.Use(authMiddleware.OptionalAuthenticate)
			r.Post("/users", userHandler.Register)
			r.Post("/users/login", userHandler.Login)
			r.Post("/users/check", userHandler.Check)
			r.Post("/users/get-by-email", userHandler.GetByEmail)
		})

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Get("/tasks", taskHandler.List)
			r.Post("/tasks", taskHandler.Create)
			r.Get("/tasks/user/{userId}", taskHandler.ListByUser)
			r.Get("/tasks/{id}", taskHandler.Get)
			r.Put("/tasks/{id}", taskHandler.Update)
			r.Patch("/tasks/{id}/toggle", taskHandler.Toggle)
			r.Delete("/tasks/{id}", taskHandler.Delete)
		})
	})

	return r
}
