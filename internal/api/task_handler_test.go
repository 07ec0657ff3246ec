package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/atom-todo-api/internal/api/shared"
	"github.com/phrazzld/atom-todo-api/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskHandlerRequiresAuth(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/api/tasks", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "No authorization token provided", decode[shared.ErrorResponse](t, rec).Message)
}

func TestTaskHandlerCreateAndGet(t *testing.T) {
	a := newTestAPI(t)
	user, authHeader := a.seedUser(t, "someone@example.com")

	rec := a.do(t, http.MethodPost, "/api/tasks", authHeader,
		CreateTaskRequest{Title: "  Buy milk ", Description: "two litres"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[TaskEnvelope](t, rec)
	assert.True(t, created.Success)
	assert.Equal(t, "Task created successfully", created.Message)
	assert.Equal(t, "Buy milk", created.Data.Title)
	assert.Equal(t, user.ID.String(), created.Data.UserID)
	assert.False(t, created.Data.Completed)
	assert.Equal(t, []events.EventType{events.TaskCreated}, a.emitter.Types())

	rec = a.do(t, http.MethodGet, "/api/tasks/"+created.Data.ID, authHeader, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.Data.ID, decode[TaskEnvelope](t, rec).Data.ID)
}

func TestTaskHandlerCreateValidation(t *testing.T) {
	a := newTestAPI(t)
	_, authHeader := a.seedUser(t, "someone@example.com")

	tests := []struct {
		name    string
		body    any
		wantMsg string
	}{
		{name: "blank title", body: CreateTaskRequest{Title: "   "}, wantMsg: "Title is required"},
		{name: "long title", body: CreateTaskRequest{Title: string(make([]byte, 101))}, wantMsg: "Title must be less than 100 characters"},
		{name: "malformed", body: `{"title": 5}`, wantMsg: "Invalid request format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(t, http.MethodPost, "/api/tasks", authHeader, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantMsg, decode[shared.ErrorResponse](t, rec).Message)
		})
	}
	assert.Empty(t, a.tasks.Tasks)
}

func TestTaskHandlerForeignTaskLooksAbsent(t *testing.T) {
	a := newTestAPI(t)
	owner, _ := a.seedUser(t, "owner@example.com")
	_, intruderAuth := a.seedUser(t, "intruder@example.com")
	task := a.seedTask(t, owner.ID, "private", 0)

	for _, req := range []struct{ method, path string }{
		{http.MethodGet, "/api/tasks/" + task.ID.String()},
		{http.MethodPut, "/api/tasks/" + task.ID.String()},
		{http.MethodPatch, "/api/tasks/" + task.ID.String() + "/toggle"},
		{http.MethodDelete, "/api/tasks/" + task.ID.String()},
	} {
		rec := a.do(t, req.method, req.path, intruderAuth, map[string]any{"title": "hijacked"})
		assert.Equal(t, http.StatusNotFound, rec.Code, "%s %s", req.method, req.path)
		assert.Equal(t, "Task not found", decode[shared.ErrorResponse](t, rec).Message)
	}

	assert.Equal(t, "private", a.tasks.Tasks[task.ID].Title)
	assert.True(t, a.tasks.Tasks[task.ID].Active)
}

func TestTaskHandlerInvalidTaskID(t *testing.T) {
	a := newTestAPI(t)
	_, authHeader := a.seedUser(t, "someone@example.com")

	rec := a.do(t, http.MethodGet, "/api/tasks/not-a-uuid", authHeader, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid id format", decode[shared.ErrorResponse](t, rec).Message)
}

func TestTaskHandlerUpdateToggleDelete(t *testing.T) {
	a := newTestAPI(t)
	user, authHeader := a.seedUser(t, "someone@example.com")
	task := a.seedTask(t, user.ID, "Draft", 0)
	path := "/api/tasks/" + task.ID.String()

	rec := a.do(t, http.MethodPut, path, authHeader, map[string]any{"title": "Final", "completed": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[TaskEnvelope](t, rec)
	assert.Equal(t, "Task updated successfully", updated.Message)
	assert.Equal(t, "Final", updated.Data.Title)
	assert.True(t, updated.Data.Completed)

	rec = a.do(t, http.MethodPut, path, authHeader, map[string]any{"completed": "yes"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPut, path, authHeader, map[string]any{"title": ""})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Title is required", decode[shared.ErrorResponse](t, rec).Message)

	rec = a.do(t, http.MethodPatch, path+"/toggle", authHeader, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	toggled := decode[TaskEnvelope](t, rec)
	assert.Equal(t, "Task status toggled successfully", toggled.Message)
	assert.False(t, toggled.Data.Completed)

	rec = a.do(t, http.MethodDelete, path, authHeader, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Task deleted successfully", decode[MessageResponse](t, rec).Message)

	rec = a.do(t, http.MethodGet, path, authHeader, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "deleted task must be hidden")

	assert.Equal(t,
		[]events.EventType{events.TaskUpdated, events.TaskToggled, events.TaskDeleted},
		a.emitter.Types())
}

func TestTaskHandlerList(t *testing.T) {
	a := newTestAPI(t)
	user, authHeader := a.seedUser(t, "someone@example.com")
	other, _ := a.seedUser(t, "other@example.com")

	a.seedTask(t, user.ID, "alpha", 0)
	beta := a.seedTask(t, user.ID, "Beta", 24*time.Hour)
	gamma := a.seedTask(t, user.ID, "gamma", 48*time.Hour)
	gamma.Completed = true
	a.tasks.Tasks[gamma.ID].Completed = true
	deleted := a.seedTask(t, user.ID, "deleted", 72*time.Hour)
	a.tasks.Tasks[deleted.ID].Active = false
	a.seedTask(t, other.ID, "foreign", 0)

	t.Run("defaults to newest first", func(t *testing.T) {
		rec := a.do(t, http.MethodGet, "/api/tasks", authHeader, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[TaskListResponse](t, rec)
		assert.True(t, resp.Success)
		assert.Equal(t, Pagination{Total: 3, Page: 1, Limit: 10, TotalPages: 1}, resp.Pagination)
		require.Len(t, resp.Data, 3)
		assert.Equal(t, "gamma", resp.Data[0].Title)
	})

	t.Run("paginates", func(t *testing.T) {
		rec := a.do(t, http.MethodGet, "/api/tasks?page=2&limit=2", authHeader, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[TaskListResponse](t, rec)
		assert.Equal(t, Pagination{Total: 3, Page: 2, Limit: 2, TotalPages: 2}, resp.Pagination)
		require.Len(t, resp.Data, 1)
		assert.Equal(t, "alpha", resp.Data[0].Title)
	})

	t.Run("sorts by title in memory", func(t *testing.T) {
		rec := a.do(t, http.MethodGet, "/api/tasks?sortBy=title&sortOrder=asc", authHeader, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[TaskListResponse](t, rec)
		require.Len(t, resp.Data, 3)
		assert.Equal(t, []string{"alpha", "Beta", "gamma"},
			[]string{resp.Data[0].Title, resp.Data[1].Title, resp.Data[2].Title})
	})

	t.Run("filters by completion and title", func(t *testing.T) {
		rec := a.do(t, http.MethodGet, "/api/tasks?completed=false&title=BET", authHeader, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[TaskListResponse](t, rec)
		require.Len(t, resp.Data, 1)
		assert.Equal(t, beta.ID.String(), resp.Data[0].ID)
	})

	t.Run("bare end date covers the whole day", func(t *testing.T) {
		rec := a.do(t, http.MethodGet, "/api/tasks?startDate=2024-03-02&endDate=2024-03-02", authHeader, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[TaskListResponse](t, rec)
		require.Len(t, resp.Data, 1)
		assert.Equal(t, "Beta", resp.Data[0].Title)
	})

	t.Run("rejects invalid parameters", func(t *testing.T) {
		for _, query := range []string{
			"page=abc", "page=-1", "limit=0x", "sortBy=priority", "sortOrder=up",
			"completed=maybe", "startDate=yesterday",
			"startDate=2024-03-05&endDate=2024-03-01",
		} {
			rec := a.do(t, http.MethodGet, "/api/tasks?"+query, authHeader, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code, query)
		}
	})

	t.Run("rejects explicit zero page and limit", func(t *testing.T) {
		rec := a.do(t, http.MethodGet, "/api/tasks?page=0", authHeader, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Page must be a positive integer", decode[shared.ErrorResponse](t, rec).Message)

		rec = a.do(t, http.MethodGet, "/api/tasks?limit=0", authHeader, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Limit must be a positive integer", decode[shared.ErrorResponse](t, rec).Message)

		rec = a.do(t, http.MethodGet, "/api/tasks?page=&limit=", authHeader, nil)
		assert.Equal(t, http.StatusOK, rec.Code, "empty values fall back to defaults")
	})
}

func TestTaskHandlerListByUser(t *testing.T) {
	a := newTestAPI(t)
	user, authHeader := a.seedUser(t, "someone@example.com")
	a.seedTask(t, user.ID, "first", 0)
	a.seedTask(t, user.ID, "second", time.Hour)

	rec := a.do(t, http.MethodGet, "/api/tasks/user/"+user.ID.String(), authHeader, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[UserTasksResponse](t, rec)
	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "second", resp.Data[0].Title)

	rec = a.do(t, http.MethodGet, "/api/tasks/user/"+uuid.NewString(), authHeader, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "You can only access your own tasks", decode[shared.ErrorResponse](t, rec).Message)
}

func TestUnknownRouteAndMethod(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/api/nope?x=1", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Route /api/nope?x=1 not found", decode[shared.ErrorResponse](t, rec).Message)

	rec = a.do(t, http.MethodDelete, "/api/users/login", "", nil)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "Method not allowed", decode[shared.ErrorResponse](t, rec).Message)
}
