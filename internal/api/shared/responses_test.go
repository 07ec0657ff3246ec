package shared

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/atom-todo-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newLoggedRequest returns a request carrying a trace ID and a capturing logger.
func newLoggedRequest(t *testing.T) (*http.Request, *logger.TestLogBuffer) {
	t.Helper()
	log, buf := logger.NewTestLogger(t)
	req := httptest.NewRequest(http.MethodGet, "/api/tasks?page=2", nil)
	ctx := SetTraceID(req.Context())
	ctx = logger.WithLogger(ctx, log)
	return req.WithContext(ctx), buf
}

func TestRespondWithJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	rec := httptest.NewRecorder()
	RespondWithJSON(rec, req, http.StatusCreated, map[string]any{"success": true, "count": 2})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success":true,"count":2}`, rec.Body.String())

	rec = httptest.NewRecorder()
	RespondWithJSON(rec, req, http.StatusOK, nil)
	assert.Equal(t, "null\n", rec.Body.String())
}

type selfReferencing struct {
	Next *selfReferencing
}

func TestRespondWithJSONLogsEncodingFailure(t *testing.T) {
	req, buf := newLoggedRequest(t)
	loop := &selfReferencing{}
	loop.Next = loop

	rec := httptest.NewRecorder()
	RespondWithJSON(rec, req, http.StatusOK, loop)

	assert.Equal(t, http.StatusOK, rec.Code)
	logger.AssertLogContains(t, buf, "failed to encode JSON response")
}

func TestRespondWithErrorEnvelope(t *testing.T) {
	req, _ := newLoggedRequest(t)

	rec := httptest.NewRecorder()
	RespondWithError(rec, req, http.StatusBadRequest, "Title is required")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Equal(t, false, raw["success"])
	assert.Equal(t, "Title is required", raw["message"])
	assert.Equal(t, GetTraceID(req.Context()), raw["trace_id"])
	assert.NotContains(t, raw, "error")
}

func TestRespondWithErrorOmitsMissingTraceID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	rec := httptest.NewRecorder()
	RespondWithError(rec, req, http.StatusUnauthorized, "No authorization token provided")

	assert.JSONEq(t, `{"success":false,"message":"No authorization token provided"}`, rec.Body.String())
}

func TestRespondWithErrorAndLogLevels(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		opts      []ResponseOption
		wantLevel string
	}{
		{"server error", http.StatusInternalServerError, nil, "ERROR"},
		{"client error", http.StatusBadRequest, nil, "DEBUG"},
		{"elevated client error", http.StatusUnauthorized, []ResponseOption{WithElevatedLogLevel()}, "WARN"},
		{"rate limited", http.StatusTooManyRequests, nil, "WARN"},
		{"elevation ignored below 400", http.StatusMovedPermanently, []ResponseOption{WithElevatedLogLevel()}, "DEBUG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, buf := newLoggedRequest(t)
			cause := errors.New("dial tcp: postgres://admin:hunter2@db:5432 refused")

			rec := httptest.NewRecorder()
			RespondWithErrorAndLog(rec, req, tt.status, "Something went wrong", cause, tt.opts...)

			require.Equal(t, tt.status, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "Something went wrong", body.Message)
			assert.NotContains(t, rec.Body.String(), "postgres://")

			entries, err := buf.Entries()
			require.NoError(t, err)
			require.Len(t, entries, 1)
			entry := entries[0]
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, "API error response", entry["msg"])
			assert.Equal(t, "/api/tasks", entry["path"])
			assert.Equal(t, float64(tt.status), entry["status_code"])
			assert.Equal(t, GetTraceID(req.Context()), entry["trace_id"])
			assert.Equal(t, "*errors.errorString", entry["error_type"])
			logger.AssertLogNotContains(t, buf, "hunter2")
		})
	}
}
