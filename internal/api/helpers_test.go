package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/atom-todo-api/internal/api/middleware"
	"github.com/phrazzld/atom-todo-api/internal/domain"
	"github.com/phrazzld/atom-todo-api/internal/mocks"
	"github.com/phrazzld/atom-todo-api/internal/platform/logger"
	"github.com/phrazzld/atom-todo-api/internal/service"
	"github.com/phrazzld/atom-todo-api/internal/service/auth"
	"github.com/phrazzld/atom-todo-api/internal/taskquery"
	"github.com/stretchr/testify/require"
)

// testAPI wires the handlers to in-memory stores behind a chi router.
type testAPI struct {
	router  http.Handler
	users   *mocks.MockUserStore
	tasks   *mocks.MockTaskStore
	emitter *mocks.MockEventEmitter
	jwt     auth.JWTService
	logs    *logger.TestLogBuffer
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	log, logs := logger.NewTestLogger(t)

	users := mocks.NewMockUserStore()
	tasks := mocks.NewMockTaskStore()
	emitter := &mocks.MockEventEmitter{}
	jwtService := auth.NewTestJWTService(auth.TestSecret, time.Hour, nil)

	userService, err := service.NewUserService(users, jwtService, log)
	require.NoError(t, err)
	engine, err := taskquery.NewEngine(tasks, log)
	require.NoError(t, err)
	taskService, err := service.NewTaskService(tasks, engine, emitter, log)
	require.NoError(t, err)

	userHandler := NewUserHandler(userService, log)
	taskHandler := NewTaskHandler(taskService, log)
	authMiddleware := middleware.NewAuthMiddleware(jwtService)

	r := chi.NewRouter()
	r.NotFound(NotFound)
	r.MethodNotAllowed(MethodNotAllowed)
	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					next.ServeHTTP(w, r.WithContext(logger.WithLogger(r.Context(), log)))
				})
			})
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

	return &testAPI{router: r, users: users, tasks: tasks, emitter: emitter, jwt: jwtService, logs: logs}
}

// seedUser registers a user directly in the store and returns a bearer header for it.
func (a *testAPI) seedUser(t *testing.T, email string) (*domain.User, string) {
	t.Helper()
	user, err := domain.NewUser(email)
	require.NoError(t, err)
	require.NoError(t, a.users.Create(context.Background(), user))

	token, _, err := a.jwt.GenerateToken(context.Background(), user.ID, user.Email)
	require.NoError(t, err)
	return user, "Bearer " + token
}

// seedTask stores a task for userID created at the given offset from a fixed base time.
func (a *testAPI) seedTask(t *testing.T, userID uuid.UUID, title string, offset time.Duration) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(userID, title, "")
	require.NoError(t, err)
	task.CreatedAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).Add(offset)
	task.UpdatedAt = task.CreatedAt
	require.NoError(t, a.tasks.Create(context.Background(), task))
	return task
}

func (a *testAPI) do(t *testing.T, method, path, authHeader string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
