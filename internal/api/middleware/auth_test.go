package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/atom-todo-api/internal/api/shared"
	"github.com/phrazzld/atom-todo-api/internal/mocks"
	"github.com/phrazzld/atom-todo-api/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate(t *testing.T) {
	now := time.Now()
	jwtService := auth.NewTestJWTService(auth.TestSecret, time.Hour, func() time.Time { return now })
	userID := uuid.New()

	validToken, _, err := jwtService.GenerateToken(context.Background(), userID, "someone@example.com")
	require.NoError(t, err)
	expiredToken, err := auth.GenerateTokenWithExpiry(jwtService, userID, "someone@example.com",
		now.Add(-time.Hour))
	require.NoError(t, err)
	otherService := auth.NewTestJWTService("another-secret-that-is-also-32-chars!!", time.Hour, nil)
	foreignToken, _, err := otherService.GenerateToken(context.Background(), userID, "someone@example.com")
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantError  string
	}{
		{name: "valid token", header: "Bearer " + validToken, wantStatus: http.StatusOK},
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized, wantError: MsgAuthHeaderRequired},
		{name: "wrong scheme", header: "Basic " + validToken, wantStatus: http.StatusUnauthorized, wantError: MsgInvalidAuthFormat},
		{name: "lowercase scheme", header: "bearer " + validToken, wantStatus: http.StatusUnauthorized, wantError: MsgInvalidAuthFormat},
		{name: "scheme only", header: "Bearer", wantStatus: http.StatusUnauthorized, wantError: MsgInvalidAuthFormat},
		{name: "extra parts", header: "Bearer a b", wantStatus: http.StatusUnauthorized, wantError: MsgInvalidAuthFormat},
		{name: "expired token", header: "Bearer " + expiredToken, wantStatus: http.StatusUnauthorized, wantError: MsgTokenExpired},
		{name: "garbage token", header: "Bearer not.a.jwt", wantStatus: http.StatusUnauthorized, wantError: MsgInvalidToken},
		{name: "foreign signature", header: "Bearer " + foreignToken, wantStatus: http.StatusUnauthorized, wantError: MsgInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUser uuid.UUID
			var gotEmail string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUser, _ = shared.UserIDFromContext(r.Context())
				gotEmail = shared.UserEmailFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			NewAuthMiddleware(jwtService).Authenticate(next).ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantError == "" {
				assert.Equal(t, userID, gotUser)
				assert.Equal(t, "someone@example.com", gotEmail)
				return
			}

			var body shared.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantError, body.Message)
			assert.Equal(t, uuid.Nil, gotUser, "next handler must not run")
		})
	}
}

func TestAuthenticateUnexpectedError(t *testing.T) {
	jwtService := &mocks.MockJWTService{ValidateErr: errors.New("keystore offline")}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()
	NewAuthMiddleware(jwtService).Authenticate(http.NotFoundHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), MsgAuthFailed)
}

func TestNewAuthMiddlewarePanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { NewAuthMiddleware(nil) })
}

func TestAuthenticateNotYetValid(t *testing.T) {
	jwtService := &mocks.MockJWTService{ValidateErr: auth.ErrTokenNotYetValid}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()
	NewAuthMiddleware(jwtService).Authenticate(http.NotFoundHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), MsgInvalidToken)
}

func TestOptionalAuthenticate(t *testing.T) {
	jwtService := auth.NewTestJWTService(auth.TestSecret, time.Hour, nil)
	userID := uuid.New()
	validToken, _, err := jwtService.GenerateToken(context.Background(), userID, "someone@example.com")
	require.NoError(t, err)

	for _, tt := range []struct {
		name     string
		header   string
		wantUser uuid.UUID
	}{
		{"valid token", "Bearer " + validToken, userID},
		{"no header", "", uuid.Nil},
		{"bad format", "Token " + validToken, uuid.Nil},
		{"invalid token", "Bearer not.a.jwt", uuid.Nil},
	} {
		t.Run(tt.name, func(t *testing.T) {
			var gotUser uuid.UUID
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				gotUser, _ = shared.UserIDFromContext(r.Context())
				w.WriteHeader(http.StatusNoContent)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			NewAuthMiddleware(jwtService).OptionalAuthenticate(next).ServeHTTP(rec, req)

			require.True(t, called)
			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.Equal(t, tt.wantUser, gotUser)
		})
	}
}
