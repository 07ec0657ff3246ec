package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/atom-todo-api/internal/domain"
	"github.com/phrazzld/atom-todo-api/internal/events"
	"github.com/phrazzld/atom-todo-api/internal/platform/logger"
	"github.com/phrazzld/atom-todo-api/internal/redact"
	"github.com/phrazzld/atom-todo-api/internal/store"
	"github.com/phrazzld/atom-todo-api/internal/taskquery"
)

// TaskQuerier answers task listings. *taskquery.Engine implements it.
type TaskQuerier interface {
	Query(ctx context.Context, p taskquery.Params) (*taskquery.Page, error)
	ListAll(ctx context.Context, userID uuid.UUID) ([]*domain.Task, error)
}

// TaskService manages a user's tasks. Every operation is scoped to userID: a
// task that is deleted or owned by someone else is reported as ErrTaskNotFound.
type TaskService interface {
	// List returns one page of the user's tasks. p.UserID must be set.
	List(ctx context.Context, p taskquery.Params) (*taskquery.Page, error)

	// ListAll returns every active task of the user, newest first.
	ListAll(ctx context.Context, userID uuid.UUID) ([]*domain.Task, error)

	Get(ctx context.Context, userID, taskID uuid.UUID) (*domain.Task, error)
	Create(ctx context.Context, userID uuid.UUID, title, description string) (*domain.Task, error)
	Update(ctx context.Context, userID, taskID uuid.UUID, changes domain.TaskChanges) (*domain.Task, error)
	Toggle(ctx context.Context, userID, taskID uuid.UUID) (*domain.Task, error)

	// Delete soft-deletes the task.
	Delete(ctx context.Context, userID, taskID uuid.UUID) error

	Exists(ctx context.Context, userID, taskID uuid.UUID) (bool, error)
}

// updatePayload lists the fields an update touched.
type updatePayload struct {
	Fields []string `json:"fields"`
}

type togglePayload struct {
	Completed bool `json:"completed"`
}

type taskServiceImpl struct {
	taskStore    store.TaskStore
	querier      TaskQuerier
	eventEmitter events.EventEmitter
	logger       *slog.Logger
	now          func() time.Time
}

// NewTaskService creates a new TaskService.
// It returns an error if any of the required dependencies are nil.
func NewTaskService(
	taskStore store.TaskStore,
	querier TaskQuerier,
	eventEmitter events.EventEmitter,
	logger *slog.Logger,
) (TaskService, error) {
	if taskStore == nil {
		return nil, domain.NewValidationError("taskStore", "cannot be nil", domain.ErrValidation)
	}
	if querier == nil {
		return nil, domain.NewValidationError("querier", "cannot be nil", domain.ErrValidation)
	}
	if eventEmitter == nil {
		return nil, domain.NewValidationError("eventEmitter", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &taskServiceImpl{
		taskStore:    taskStore,
		querier:      querier,
		eventEmitter: eventEmitter,
		logger:       logger.With(slog.String("component", "task_service")),
		now:          time.Now,
	}, nil
}

// List implements TaskService.List
func (s *taskServiceImpl) List(ctx context.Context, p taskquery.Params) (*taskquery.Page, error) {
	page, err := s.querier.Query(ctx, p)
	if err != nil {
		return nil, NewTaskServiceError("list_tasks", "failed to query tasks", err)
	}
	return page, nil
}

// ListAll implements TaskService.ListAll
func (s *taskServiceImpl) ListAll(ctx context.Context, userID uuid.UUID) ([]*domain.Task, error) {
	tasks, err := s.querier.ListAll(ctx, userID)
	if err != nil {
		return nil, NewTaskServiceError("list_all_tasks", "failed to list tasks", err)
	}
	return tasks, nil
}

// Get implements TaskService.Get
func (s *taskServiceImpl) Get(ctx context.Context, userID, taskID uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := s.taskStore.GetByID(ctx, taskID)
	if err != nil {
		if !store.IsNotFoundError(err) {
			log.Error("failed to retrieve task",
				slog.String("error", redact.Error(err)),
				slog.String("task_id", taskID.String()))
		}
		return nil, NewTaskServiceError("get_task", "failed to retrieve task", err)
	}

	if err := visibleTo(task, userID); err != nil {
		log.Debug("task not visible to caller",
			slog.String("task_id", taskID.String()),
			slog.String("user_id", userID.String()))
		return nil, err
	}
	return task, nil
}

// Create implements TaskService.Create
func (s *taskServiceImpl) Create(
	ctx context.Context,
	userID uuid.UUID,
	title, description string,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := domain.NewTask(userID, title, description)
	if err != nil {
		return nil, err
	}

	if err := s.taskStore.Create(ctx, task); err != nil {
		log.Error("failed to save task",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", userID.String()))
		return nil, NewTaskServiceError("create_task", "failed to save task", err)
	}

	log.Info("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("user_id", userID.String()))
	s.emit(ctx, events.TaskCreated, task, nil)

	return task, nil
}

// Update implements TaskService.Update
func (s *taskServiceImpl) Update(
	ctx context.Context,
	userID, taskID uuid.UUID,
	changes domain.TaskChanges,
) (*domain.Task, error) {
	task, err := s.mutate(ctx, "update_task", userID, taskID, func(t *domain.Task) error {
		return t.Apply(changes, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.TaskUpdated, task, updatePayload{Fields: changedFields(changes)})
	return task, nil
}

// Toggle implements TaskService.Toggle
func (s *taskServiceImpl) Toggle(ctx context.Context, userID, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.mutate(ctx, "toggle_task", userID, taskID, func(t *domain.Task) error {
		t.Toggle(s.now())
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.TaskToggled, task, togglePayload{Completed: task.Completed})
	return task, nil
}

// Delete implements TaskService.Delete
func (s *taskServiceImpl) Delete(ctx context.Context, userID, taskID uuid.UUID) error {
	task, err := s.mutate(ctx, "delete_task", userID, taskID, func(t *domain.Task) error {
		t.Deactivate(s.now())
		return nil
	})
	if err != nil {
		return err
	}

	s.emit(ctx, events.TaskDeleted, task, nil)
	return nil
}

// Exists implements TaskService.Exists
func (s *taskServiceImpl) Exists(ctx context.Context, userID, taskID uuid.UUID) (bool, error) {
	_, err := s.Get(ctx, userID, taskID)
	if errors.Is(err, ErrTaskNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// mutate runs fn on the task inside the store's atomic read-modify-write,
// refusing tasks the caller may not see.
func (s *taskServiceImpl) mutate(
	ctx context.Context,
	operation string,
	userID, taskID uuid.UUID,
	fn store.TaskMutation,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := s.taskStore.Mutate(ctx, taskID, func(t *domain.Task) error {
		if err := visibleTo(t, userID); err != nil {
			return err
		}
		return fn(t)
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrTaskNotFound), store.IsNotFoundError(err):
			log.Debug("task not found for mutation",
				slog.String("operation", operation),
				slog.String("task_id", taskID.String()))
		case errors.Is(err, domain.ErrValidation):
			log.Debug("rejected task mutation",
				slog.String("operation", operation),
				slog.String("error", err.Error()))
		default:
			log.Error("failed to mutate task",
				slog.String("operation", operation),
				slog.String("error", redact.Error(err)),
				slog.String("task_id", taskID.String()))
		}
		return nil, NewTaskServiceError(operation, "failed to modify task", err)
	}

	log.Info("task modified",
		slog.String("operation", operation),
		slog.String("task_id", taskID.String()),
		slog.String("user_id", userID.String()))
	return task, nil
}

// emit publishes a lifecycle event. Delivery failures are logged and never
// fail the operation that produced the event.
func (s *taskServiceImpl) emit(ctx context.Context, eventType events.EventType, task *domain.Task, payload any) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	event, err := events.NewTaskEvent(eventType, task.ID, task.UserID, payload)
	if err != nil {
		log.Error("failed to build task event",
			slog.String("event_type", string(eventType)),
			slog.String("error", err.Error()))
		return
	}
	if err := s.eventEmitter.EmitEvent(ctx, event); err != nil {
		log.Warn("task event handler failed",
			slog.String("event_type", string(eventType)),
			slog.String("task_id", task.ID.String()),
			slog.String("error", err.Error()))
	}
}

func visibleTo(task *domain.Task, userID uuid.UUID) error {
	if !task.Active || !task.OwnedBy(userID) {
		return ErrTaskNotFound
	}
	return nil
}

func changedFields(changes domain.TaskChanges) []string {
	fields := make([]string, 0, 3)
	if changes.Title != nil {
		fields = append(fields, "title")
	}
	if changes.Description != nil {
		fields = append(fields, "description")
	}
	if changes.Completed != nil {
		fields = append(fields, "completed")
	}
	return fields
}
