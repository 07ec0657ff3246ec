package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/phrazzld/atom-todo-api/internal/config"
	"github.com/phrazzld/atom-todo-api/internal/platform/logger"
	"github.com/phrazzld/atom-todo-api/internal/service/auth"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// testConfig returns a valid configuration backed by a sqlite file in a temp dir.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:                   8080,
			LogLevel:               "debug",
			ReadTimeoutSeconds:     5,
			WriteTimeoutSeconds:    5,
			ShutdownTimeoutSeconds: 5,
			CORSAllowedOrigins:     []string{"https://app.example.com"},
		},
		Database: config.DatabaseConfig{
			Driver:       driverSQLite,
			URL:          filepath.Join(t.TempDir(), "todo.db"),
			MaxOpenConns: 1,
		},
		Auth: config.AuthConfig{
			JWTSecret:            auth.TestSecret,
			TokenLifetimeMinutes: 60,
		},
		Query: config.QueryConfig{DefaultLimit: 10, MaxLimit: 100},
	}
	require.NoError(t, config.Validate(cfg))
	return cfg
}

// newTestApp opens and migrates the sqlite database of cfg and builds the application.
func newTestApp(t *testing.T, cfg *config.Config) (*application, *prometheus.Registry) {
	t.Helper()
	ctx := context.Background()
	log, _ := logger.NewTestLogger(t)

	db, err := setupAppDatabase(ctx, cfg.Database, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, autoMigrate(ctx, db, cfg.Database.Driver, log))

	reg := prometheus.NewRegistry()
	app, err := newApplication(cfg, log, db, reg)
	require.NoError(t, err)
	return app, reg
}

type client struct {
	t       *testing.T
	handler http.Handler
	token   string
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.7:40000"
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func countRows(t *testing.T, db *sql.DB, query string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRowContext(context.Background(), query).Scan(&n))
	return n
}

func newRequest(method, path, authHeader string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	return req
}

func serve(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}
