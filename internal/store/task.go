package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/atom-todo-api/internal/domain"
)

// TaskOrderField names a task attribute a backend may be able to order by.
type TaskOrderField string

// Orderable task fields.
const (
	TaskOrderCreatedAt TaskOrderField = "createdAt"
	TaskOrderUpdatedAt TaskOrderField = "updatedAt"
	TaskOrderTitle     TaskOrderField = "title"
)

// TaskOrder asks the backend to return tasks ordered by Field.
type TaskOrder struct {
	Field      TaskOrderField
	Descending bool
}

// TaskFilter is the equality filter pushed down to the backend.
type TaskFilter struct {
	UserID uuid.UUID
	// Completed restricts results to the given completion state when non-nil.
	Completed *bool
	// ActiveOnly excludes soft-deleted tasks. Records written before the active
	// flag existed count as active.
	ActiveOnly bool
	// OrderBy requests native ordering. Backends answer ErrOrderUnavailable for
	// fields they cannot order by.
	OrderBy *TaskOrder
}

// TaskMutation modifies a loaded task in place. Returning an error aborts the
// mutation without writing anything.
type TaskMutation func(task *domain.Task) error

// TaskStore defines the interface for task persistence.
type TaskStore interface {
	// Create saves a new task.
	// Returns store.ErrInvalidEntity if the task or its owner is invalid.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task regardless of its active flag.
	// Returns ErrTaskNotFound if no task has the given ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// FindTasks returns every task matching filter. The result is never nil.
	FindTasks(ctx context.Context, filter TaskFilter) ([]*domain.Task, error)

	// Mutate loads the task, applies fn and persists the result atomically.
	// Only title, description, completed, active and updatedAt are written.
	// Returns ErrTaskNotFound if no task has the given ID.
	Mutate(ctx context.Context, id uuid.UUID, fn TaskMutation) (*domain.Task, error)
}
