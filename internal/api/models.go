package api

import (
	"time"

	"github.com/phrazzld/atom-todo-api/internal/domain"
	"github.com/phrazzld/atom-todo-api/internal/taskquery"
)

// EmailRequest is the body of every /api/users endpoint.
type EmailRequest struct {
	Email string `json:"email" validate:"required,max=254"`
}

// CreateTaskRequest is the body of POST /api/tasks.
type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Validate applies the domain title and description rules.
func (r CreateTaskRequest) Validate() error {
	if err := domain.ValidateTitle(r.Title); err != nil {
		return err
	}
	return domain.ValidateDescription(r.Description)
}

// UpdateTaskRequest is the body of PUT /api/tasks/{id}. Absent fields are left unchanged.
type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// Changes converts the request into a domain partial update.
func (r UpdateTaskRequest) Changes() domain.TaskChanges {
	return domain.TaskChanges{
		Title:       r.Title,
		Description: r.Description,
		Completed:   r.Completed,
	}
}

// UserResponse is the public representation of a user.
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TaskResponse is the public representation of a task.
type TaskResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// LoginResponse answers POST /api/users/login. An unknown email is a
// successful response with Exists false.
type LoginResponse struct {
	Success   bool          `json:"success"`
	Exists    bool          `json:"exists"`
	Message   string        `json:"message,omitempty"`
	Token     string        `json:"token,omitempty"`
	ExpiresAt *time.Time    `json:"expiresAt,omitempty"`
	Data      *UserResponse `json:"data,omitempty"`
}

// RegisterResponse answers POST /api/users.
type RegisterResponse struct {
	Success   bool         `json:"success"`
	Message   string       `json:"message"`
	Data      UserResponse `json:"data"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// UserLookupResponse answers /api/users/check and /api/users/get-by-email.
type UserLookupResponse struct {
	Success bool          `json:"success"`
	Exists  bool          `json:"exists"`
	Message string        `json:"message,omitempty"`
	Data    *UserResponse `json:"data,omitempty"`
}

// TaskEnvelope wraps a single task.
type TaskEnvelope struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Data    TaskResponse `json:"data"`
}

// Pagination describes where a page sits in the full listing.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// TaskListResponse answers GET /api/tasks.
type TaskListResponse struct {
	Success    bool           `json:"success"`
	Data       []TaskResponse `json:"data"`
	Pagination Pagination     `json:"pagination"`
}

// UserTasksResponse answers GET /api/tasks/user/{userId}.
type UserTasksResponse struct {
	Success bool           `json:"success"`
	Data    []TaskResponse `json:"data"`
	Count   int            `json:"count"`
}

// MessageResponse is a success response without data.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// HealthResponse answers the health endpoints.
type HealthResponse struct {
	Success   bool      `json:"success"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func userToResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID.String(),
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

func taskToResponse(task *domain.Task) TaskResponse {
	return TaskResponse{
		ID:          task.ID.String(),
		UserID:      task.UserID.String(),
		Title:       task.Title,
		Description: task.Description,
		Completed:   task.Completed,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

func tasksToResponse(tasks []*domain.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskToResponse(t))
	}
	return out
}

func pageToResponse(page *taskquery.Page) TaskListResponse {
	return TaskListResponse{
		Success: true,
		Data:    tasksToResponse(page.Tasks),
		Pagination: Pagination{
			Total:      page.Total,
			Page:       page.Page,
			Limit:      page.Limit,
			TotalPages: page.TotalPages,
		},
	}
}
