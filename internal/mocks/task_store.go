package mocks

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/atom-todo-api/internal/domain"
	"github.com/phrazzld/atom-todo-api/internal/store"
)

// MockTaskStore implements store.TaskStore in memory. Only the fields listed
// in NativeOrder can be ordered by; others answer store.ErrOrderUnavailable.
type MockTaskStore struct {
	CreateFn    func(ctx context.Context, task *domain.Task) error
	GetByIDFn   func(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	FindTasksFn func(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error)
	MutateFn    func(ctx context.Context, id uuid.UUID, fn store.TaskMutation) (*domain.Task, error)

	Tasks          map[uuid.UUID]*domain.Task
	NativeOrder    []store.TaskOrderField
	CreateError    error
	FindTasksError error
	MutateError    error

	// FindCalls records every filter passed to FindTasks.
	FindCalls []store.TaskFilter

	mu sync.Mutex
}

var _ store.TaskStore = (*MockTaskStore)(nil)

// NewMockTaskStore creates an empty store that orders natively by createdAt.
func NewMockTaskStore(tasks ...*domain.Task) *MockTaskStore {
	m := &MockTaskStore{
		Tasks:       make(map[uuid.UUID]*domain.Task),
		NativeOrder: []store.TaskOrderField{store.TaskOrderCreatedAt},
	}
	for _, t := range tasks {
		m.Tasks[t.ID] = t
	}
	return m
}

// Create implements the TaskStore interface
func (m *MockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, task)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateError != nil {
		return m.CreateError
	}
	if _, exists := m.Tasks[task.ID]; exists {
		return store.ErrDuplicate
	}
	copied := *task
	m.Tasks[task.ID] = &copied
	return nil
}

// GetByID implements the TaskStore interface
func (m *MockTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.Tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

// FindTasks implements the TaskStore interface
func (m *MockTaskStore) FindTasks(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	if m.FindTasksFn != nil {
		return m.FindTasksFn(ctx, filter)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.FindCalls = append(m.FindCalls, filter)
	if m.FindTasksError != nil {
		return nil, m.FindTasksError
	}
	if filter.OrderBy != nil && !slices.Contains(m.NativeOrder, filter.OrderBy.Field) {
		return nil, store.ErrOrderUnavailable
	}

	result := make([]*domain.Task, 0, len(m.Tasks))
	for _, task := range m.Tasks {
		if task.UserID != filter.UserID {
			continue
		}
		if filter.ActiveOnly && !task.Active {
			continue
		}
		if filter.Completed != nil && task.Completed != *filter.Completed {
			continue
		}
		copied := *task
		result = append(result, &copied)
	}

	if filter.OrderBy != nil {
		order := *filter.OrderBy
		slices.SortStableFunc(result, func(a, b *domain.Task) int {
			var c int
			switch order.Field {
			case store.TaskOrderUpdatedAt:
				c = a.UpdatedAt.Compare(b.UpdatedAt)
			case store.TaskOrderTitle:
				c = strings.Compare(a.Title, b.Title)
			default:
				c = a.CreatedAt.Compare(b.CreatedAt)
			}
			if c == 0 {
				c = cmp.Compare(a.ID.String(), b.ID.String())
			}
			if order.Descending {
				return -c
			}
			return c
		})
	}
	return result, nil
}

// Mutate implements the TaskStore interface
func (m *MockTaskStore) Mutate(
	ctx context.Context,
	id uuid.UUID,
	fn store.TaskMutation,
) (*domain.Task, error) {
	if m.MutateFn != nil {
		return m.MutateFn(ctx, id, fn)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.MutateError != nil {
		return nil, m.MutateError
	}
	existing, ok := m.Tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}

	working := *existing
	if err := fn(&working); err != nil {
		return nil, err
	}
	m.Tasks[id] = &working

	result := working
	return &result, nil
}
