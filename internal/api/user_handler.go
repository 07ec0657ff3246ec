package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/phrazzld/atom-todo-api/internal/api/shared"
	"github.com/phrazzld/atom-todo-api/internal/platform/logger"
	"github.com/phrazzld/atom-todo-api/internal/redact"
	"github.com/phrazzld/atom-todo-api/internal/service"
)

// UserHandler handles the email-based sign in endpoints under /api/users.
type UserHandler struct {
	userService service.UserService
	logger      *slog.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService service.UserService, logger *slog.Logger) *UserHandler {
	if userService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("userService cannot be nil for UserHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for UserHandler")
	}

	return &UserHandler{
		userService: userService,
		logger:      logger.With(slog.String("component", "user_handler")),
	}
}

// Login handles POST /api/users/login.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeEmail(w, r)
	if !ok {
		return
	}

	session, exists, err := h.userService.Login(r.Context(), req.Email)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to process login")
		return
	}
	if !exists {
		shared.RespondWithJSON(w, r, http.StatusOK, LoginResponse{
			Success: true,
			Exists:  false,
			Message: "User not found",
		})
		return
	}

	user := userToResponse(session.User)
	shared.RespondWithJSON(w, r, http.StatusOK, LoginResponse{
		Success:   true,
		Exists:    true,
		Token:     session.Token,
		ExpiresAt: &session.ExpiresAt,
		Data:      &user,
	})
}

// Register handles POST /api/users.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeEmail(w, r)
	if !ok {
		return
	}

	session, err := h.userService.Register(r.Context(), req.Email)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create user")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, RegisterResponse{
		Success:   true,
		Message:   "User created successfully",
		Data:      userToResponse(session.User),
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
	})
}

// Check handles POST /api/users/check.
func (h *UserHandler) Check(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeEmail(w, r)
	if !ok {
		return
	}

	exists, err := h.userService.Exists(r.Context(), req.Email)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to check user")
		return
	}

	message := "User not found"
	if exists {
		message = "User exists"
	}
	shared.RespondWithJSON(w, r, http.StatusOK, UserLookupResponse{
		Success: true,
		Exists:  exists,
		Message: message,
	})
}

// GetByEmail handles POST /api/users/get-by-email. Unlike Login it never
// issues a token. The route is public; when the caller sent a valid token the
// lookup is logged against their user ID.
func (h *UserHandler) GetByEmail(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeEmail(w, r)
	if !ok {
		return
	}

	log := logger.FromContextOrDefault(r.Context(), h.logger)
	if callerID, signedIn := shared.UserIDFromContext(r.Context()); signedIn {
		log.Info("user lookup by signed-in caller", slog.String("caller_id", callerID.String()))
	} else {
		log.Debug("anonymous user lookup")
	}

	user, err := h.userService.GetByEmail(r.Context(), req.Email)
	if errors.Is(err, service.ErrUserNotFound) {
		shared.RespondWithJSON(w, r, http.StatusOK, UserLookupResponse{
			Success: true,
			Exists:  false,
			Message: "User not found",
		})
		return
	}
	if err != nil {
		HandleAPIError(w, r, err, "Failed to retrieve user")
		return
	}

	data := userToResponse(user)
	shared.RespondWithJSON(w, r, http.StatusOK, UserLookupResponse{
		Success: true,
		Exists:  true,
		Data:    &data,
	})
}

func (h *UserHandler) decodeEmail(w http.ResponseWriter, r *http.Request) (EmailRequest, bool) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req EmailRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Debug("invalid request format", slog.String("error", redact.Error(err)))
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return req, false
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return req, false
	}
	return req, true
}
