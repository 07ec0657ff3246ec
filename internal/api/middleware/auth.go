package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/phrazzld/atom-todo-api/internal/api/shared"
	"github.com/phrazzld/atom-todo-api/internal/platform/logger"
	"github.com/phrazzld/atom-todo-api/internal/redact"
	"github.com/phrazzld/atom-todo-api/internal/service/auth"
)

// Client-facing authentication failure messages.
const (
	MsgAuthHeaderRequired = "No authorization token provided"
	MsgInvalidAuthFormat  = "Invalid token format. Expected: Bearer <token>"
	MsgTokenExpired       = "Token expired. Please login again."
	MsgInvalidToken       = "Invalid authentication token"
	MsgAuthFailed         = "Authentication failed"
)

// AuthMiddleware provides JWT authentication for routes.
type AuthMiddleware struct {
	jwtService auth.JWTService
}

// NewAuthMiddleware creates a new AuthMiddleware with the given dependencies.
func NewAuthMiddleware(jwtService auth.JWTService) *AuthMiddleware {
	if jwtService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("jwtService cannot be nil for AuthMiddleware")
	}
	return &AuthMiddleware{
		jwtService: jwtService,
	}
}

// Authenticate validates the bearer token from the Authorization header and
// adds the user to the request context. Every failure answers 401.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, MsgAuthHeaderRequired)
			return
		}

		token, ok := bearerToken(authHeader)
		if !ok {
			shared.RespondWithError(w, r, http.StatusUnauthorized, MsgInvalidAuthFormat)
			return
		}

		claims, err := m.jwtService.ValidateToken(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrExpiredToken):
				shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, MsgTokenExpired, err)
			case errors.Is(err, auth.ErrInvalidToken),
				errors.Is(err, auth.ErrTokenNotYetValid),
				errors.Is(err, auth.ErrWrongTokenType),
				errors.Is(err, auth.ErrMissingToken):
				shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, MsgInvalidToken, err,
					shared.WithElevatedLogLevel())
			default:
				logger.FromContext(r.Context()).Error("failed to validate token",
					slog.String("error", redact.Error(err)))
				shared.RespondWithError(w, r, http.StatusUnauthorized, MsgAuthFailed)
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), claims)))
	})
}

// OptionalAuthenticate attaches the user to the request context when a valid
// bearer token is present. It never rejects a request.
func (m *AuthMiddleware) OptionalAuthenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := m.jwtService.ValidateToken(r.Context(), token)
		if err != nil {
			logger.FromContext(r.Context()).Debug("ignoring unverifiable token",
				slog.String("error", redact.Error(err)))
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), claims)))
	})
}

func withIdentity(ctx context.Context, claims *auth.Claims) context.Context {
	ctx = shared.WithUser(ctx, claims.UserID, claims.Email)
	return logger.WithLogger(ctx, logger.FromContext(ctx).With(
		slog.String("user_id", claims.UserID.String())))
}

// bearerToken extracts the token from "Bearer <token>". The scheme is matched
// case-sensitively and exactly one space must separate it from the token.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || scheme != "Bearer" || token == "" || strings.Contains(token, " ") {
		return "", false
	}
	return token, true
}
