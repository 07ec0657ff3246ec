package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/atom-todo-api/internal/api/shared"
	"github.com/phrazzld/atom-todo-api/internal/domain"
	"github.com/phrazzld/atom-todo-api/internal/platform/logger"
	"github.com/phrazzld/atom-todo-api/internal/taskquery"
)

// dateLayout is the bare-day format accepted for date query parameters.
const dateLayout = "2006-01-02"

// getPathUUID extracts a UUID from the URL path parameters.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, domain.NewValidationError(paramName, "Task ID is required", domain.ErrValidation)
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, domain.NewValidationError(paramName,
			"Invalid "+paramName+" format", domain.ErrInvalidID)
	}

	return id, nil
}

// handleUserIDAndPathUUID extracts the authenticated user and a UUID path
// parameter. It writes an error response and returns false if either fails.
func handleUserIDAndPathUUID(
	w http.ResponseWriter,
	r *http.Request,
	paramName string,
	log *slog.Logger,
) (uuid.UUID, uuid.UUID, bool) {
	if log == nil {
		log = logger.FromContextOrDefault(r.Context(), slog.Default())
	}

	userID, ok := shared.UserIDFromContext(r.Context())
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return uuid.Nil, uuid.Nil, false
	}

	pathID, err := getPathUUID(r, paramName)
	if err != nil {
		log.Debug("invalid path parameter",
			slog.String("param_name", paramName),
			slog.String("value", chi.URLParam(r, paramName)))
		HandleAPIError(w, r, err, "")
		return uuid.Nil, uuid.Nil, false
	}

	return userID, pathID, true
}

// parseTaskQuery reads the listing parameters of GET /api/tasks. Range and
// enum checks are left to the query engine.
func parseTaskQuery(query url.Values, userID uuid.UUID) (taskquery.Params, error) {
	p := taskquery.Params{
		UserID:    userID,
		SortBy:    taskquery.SortField(query.Get("sortBy")),
		SortOrder: taskquery.SortOrder(query.Get("sortOrder")),
		Title:     query.Get("title"),
	}

	var err error
	if p.Page, err = parseIntParam(query, "page", "Page must be a positive integer"); err != nil {
		return p, err
	}
	if p.Limit, err = parseIntParam(query, "limit", "Limit must be a positive integer"); err != nil {
		return p, err
	}

	if raw := strings.TrimSpace(query.Get("completed")); raw != "" {
		completed, err := strconv.ParseBool(raw)
		if err != nil {
			return p, domain.NewValidationError("completed",
				"Completed must be true or false", taskquery.ErrInvalidQuery)
		}
		p.Completed = &completed
	}

	if p.StartDate, err = parseDateParam(query, "startDate", false); err != nil {
		return p, err
	}
	if p.EndDate, err = parseDateParam(query, "endDate", true); err != nil {
		return p, err
	}

	return p, nil
}

func parseIntParam(query url.Values, name, message string) (int, error) {
	raw := strings.TrimSpace(query.Get(name))
	if raw == "" {
		return 0, nil
	}
	// zero means "use the default" to Normalize, so a present value must be
	// rejected here
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, domain.NewValidationError(name, message, taskquery.ErrInvalidQuery)
	}
	return n, nil
}

// parseDateParam accepts RFC3339 timestamps or bare YYYY-MM-DD days (UTC).
// A bare day used as an upper bound covers the whole day.
func parseDateParam(query url.Values, name string, endOfDay bool) (*time.Time, error) {
	raw := strings.TrimSpace(query.Get(name))
	if raw == "" {
		return nil, nil
	}

	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}

	day, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, domain.NewValidationError(name,
			name+" must be a valid date (YYYY-MM-DD or RFC3339)", taskquery.ErrInvalidQuery)
	}
	if endOfDay {
		day = day.Add(24*time.Hour - time.Nanosecond)
	}
	return &day, nil
}
