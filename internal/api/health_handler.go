package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/atom-todo-api/internal/api/shared"
	"github.com/phrazzld/atom-todo-api/internal/platform/logger"
)

// Pinger reports whether a dependency is reachable. *sql.DB implements it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// healthPingTimeout bounds the database check.
const healthPingTimeout = 2 * time.Second

// HealthHandler answers liveness and readiness checks.
type HealthHandler struct {
	db     Pinger
	logger *slog.Logger
	now    func() time.Time
}

// NewHealthHandler creates a HealthHandler. db may be nil, in which case
// only liveness is reported.
func NewHealthHandler(db Pinger, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		db:     db,
		logger: logger.With(slog.String("component", "health_handler")),
		now:    time.Now,
	}
}

// Live handles GET /health. It never touches the database.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{
		Success:   true,
		Status:    "ok",
		Message:   "API is running",
		Timestamp: h.now().UTC(),
	})
}

// Ready handles GET /api/health, which also checks the database.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			logger.FromContextOrDefault(r.Context(), h.logger).Error("database health check failed",
				slog.String("error", err.Error()))
			shared.RespondWithJSON(w, r, http.StatusServiceUnavailable, HealthResponse{
				Success:   false,
				Status:    "unavailable",
				Message:   "Database unavailable",
				Timestamp: h.now().UTC(),
			})
			return
		}
	}
	h.Live(w, r)
}

// NotFound answers unknown routes with a JSON error naming the requested URL.
func NotFound(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithError(w, r, http.StatusNotFound, "Route "+r.URL.RequestURI()+" not found")
}

// MethodNotAllowed answers known routes called with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
}
