package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/atom-todo-api/internal/domain"
	"github.com/phrazzld/atom-todo-api/internal/platform/docschema"
	"github.com/phrazzld/atom-todo-api/internal/platform/logger"
	"github.com/phrazzld/atom-todo-api/internal/redact"
	"github.com/phrazzld/atom-todo-api/internal/store"
)

// TaskStore implements store.TaskStore on the documents table.
type TaskStore struct {
	db      store.DBTX
	schemas *docschema.Validator
	logger  *slog.Logger
}

// NewTaskStore creates a TaskStore. If logger is nil, a default logger is used.
func NewTaskStore(db store.DBTX, schemas *docschema.Validator, logger *slog.Logger) *TaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if schemas == nil {
		panic("schema validator cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskStore{
		db:      db,
		schemas: schemas,
		logger:  logger.With(slog.String("component", "task_store"), slog.String("backend", "sqlite")),
	}
}

var _ store.TaskStore = (*TaskStore)(nil)

// Create implements store.TaskStore.Create. The owner must exist.
func (s *TaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	body, err := s.encode(task)
	if err != nil {
		log.Warn("task rejected before insert",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	err = store.RunAtomic(ctx, s.db, func(ctx context.Context, q store.DBTX) error {
		var exists int
		err := q.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM documents WHERE collection = ? AND id = ?`,
			collectionUsers, task.UserID.String()).Scan(&exists)
		if err != nil {
			return store.NewStoreError("task", "create", "failed to check owner", err)
		}
		if exists == 0 {
			return fmt.Errorf("%w: owner does not exist", store.ErrInvalidEntity)
		}

		_, err = q.ExecContext(ctx,
			`INSERT INTO documents (collection, id, body) VALUES (?, ?, ?)`,
			collectionTasks, task.ID.String(), body)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: task id", store.ErrDuplicate)
			}
			return store.NewStoreError("task", "create", "failed to insert task", err)
		}
		return nil
	})
	if err != nil {
		log.Error("failed to create task",
			slog.String("error", redact.Error(err)),
			slog.String("task_id", task.ID.String()),
			slog.String("user_id", task.UserID.String()))
		return err
	}

	log.Debug("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("user_id", task.UserID.String()))
	return nil
}

// GetByID implements store.TaskStore.GetByID.
func (s *TaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return s.getOne(ctx, s.db, id)
}

// FindTasks implements store.TaskStore.FindTasks.
func (s *TaskStore) FindTasks(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query, args, err := buildFindQuery(filter)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query task documents",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", filter.UserID.String()))
		return nil, store.NewStoreError("task", "find", "failed to query tasks", err)
	}
	defer func() { _ = rows.Close() }()

	tasks := []*domain.Task{}
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, store.NewStoreError("task", "find", "failed to scan task", err)
		}
		task, err := decodeTask(body)
		if err != nil {
			log.Error("corrupt task document", slog.String("error", err.Error()))
			return nil, store.NewStoreError("task", "find", "corrupt task document", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("task", "find", "failed to read tasks", err)
	}

	return tasks, nil
}

// Mutate implements store.TaskStore.Mutate.
func (s *TaskStore) Mutate(ctx context.Context, id uuid.UUID, fn store.TaskMutation) (*domain.Task, error) {
	var updated *domain.Task
	err := store.RunAtomic(ctx, s.db, func(ctx context.Context, q store.DBTX) error {
		task, err := s.getOne(ctx, q, id)
		if err != nil {
			return err
		}
		if err := fn(task); err != nil {
			return err
		}

		body, err := s.encode(task)
		if err != nil {
			return err
		}
		_, err = q.ExecContext(ctx,
			`UPDATE documents SET body = ? WHERE collection = ? AND id = ?`,
			body, collectionTasks, id.String())
		if err != nil {
			return store.NewStoreError("task", "mutate", "failed to update task", err)
		}

		updated = task
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("task updated", slog.String("task_id", id.String()))
	return updated, nil
}

// encode validates task and renders its JSON document.
func (s *TaskStore) encode(task *domain.Task) (string, error) {
	if err := task.Validate(); err != nil {
		return "", err
	}
	doc := newTaskDocument(task)
	if err := s.schemas.ValidateTask(doc); err != nil {
		return "", fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode task document: %w", err)
	}
	return string(body), nil
}

func (s *TaskStore) getOne(ctx context.Context, q store.DBTX, id uuid.UUID) (*domain.Task, error) {
	var body []byte
	err := q.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND id = ?`,
		collectionTasks, id.String()).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to query task document",
			slog.String("task_id", id.String()),
			slog.String("error", redact.Error(err)))
		return nil, store.NewStoreError("task", "get", "failed to query task", err)
	}

	task, err := decodeTask(body)
	if err != nil {
		return nil, store.NewStoreError("task", "get", "corrupt task document", err)
	}
	return task, nil
}

// buildFindQuery renders the document query for filter. Only createdAt can
// be ordered natively.
func buildFindQuery(filter store.TaskFilter) (string, []any, error) {
	var sb strings.Builder
	args := []any{collectionTasks, filter.UserID.String()}

	sb.WriteString(`SELECT body FROM documents WHERE collection = ? AND json_extract(body, '$.userId') = ?`)
	if filter.ActiveOnly {
		sb.WriteString(` AND COALESCE(json_extract(body, '$.active'), 1) = 1`)
	}
	if filter.Completed != nil {
		sb.WriteString(` AND COALESCE(json_extract(body, '$.completed'), 0) = ?`)
		completed := 0
		if *filter.Completed {
			completed = 1
		}
		args = append(args, completed)
	}

	if filter.OrderBy != nil {
		if filter.OrderBy.Field != store.TaskOrderCreatedAt {
			return "", nil, fmt.Errorf("%w: %s", store.ErrOrderUnavailable, filter.OrderBy.Field)
		}
		dir := "ASC"
		if filter.OrderBy.Descending {
			dir = "DESC"
		}
		// julianday orders legacy RFC 3339 values with offsets or uneven
		// fractions by instant; it only keeps milliseconds, so the fixed-width
		// string breaks ties below that.
		fmt.Fprintf(&sb,
			` ORDER BY julianday(json_extract(body, '$.createdAt')) %[1]s, json_extract(body, '$.createdAt') %[1]s, id %[1]s`,
			dir)
	}

	return sb.String(), args, nil
}
