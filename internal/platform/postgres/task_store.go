package postgres

import (
	"context"
	"database/sql"
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

const taskColumns = "id, user_id, title, description, completed, active, created_at, updated_at"

// orderColumns maps the fields that have a supporting index to their column.
var orderColumns = map[store.TaskOrderField]string{
	store.TaskOrderCreatedAt: "created_at",
	store.TaskOrderUpdatedAt: "updated_at",
}

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db      store.DBTX
	schemas *docschema.Validator
	logger  *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, schemas *docschema.Validator, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if schemas == nil {
		panic("schema validator cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:      db,
		schemas: schemas,
		logger:  logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// Create implements store.TaskStore.Create.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.check(task); err != nil {
		log.Warn("task rejected before insert",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		task.ID, task.UserID, task.Title, task.Description,
		task.Completed, task.Active, task.CreatedAt, task.UpdatedAt)
	if err != nil {
		log.Error("failed to insert task",
			slog.String("error", redact.Error(err)),
			slog.String("task_id", task.ID.String()),
			slog.String("user_id", task.UserID.String()))
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: owner does not exist", store.ErrInvalidEntity)
		}
		return store.NewStoreError("task", "create", "failed to insert task", MapError(err))
	}

	log.Debug("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("user_id", task.UserID.String()))
	return nil
}

// GetByID implements store.TaskStore.GetByID.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return s.getOne(ctx, s.db, "get_by_id", `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
}

// FindTasks implements store.TaskStore.FindTasks.
func (s *PostgresTaskStore) FindTasks(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query, args, err := buildFindQuery(filter)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query tasks",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", filter.UserID.String()))
		return nil, store.NewStoreError("task", "find", "failed to query tasks", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	tasks := []*domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			log.Error("failed to scan task row", slog.String("error", err.Error()))
			return nil, store.NewStoreError("task", "find", "failed to scan task", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating task rows", slog.String("error", redact.Error(err)))
		return nil, store.NewStoreError("task", "find", "failed to read tasks", MapError(err))
	}

	return tasks, nil
}

// Mutate implements store.TaskStore.Mutate. The row is locked with
// SELECT ... FOR UPDATE for the duration of fn.
func (s *PostgresTaskStore) Mutate(ctx context.Context, id uuid.UUID, fn store.TaskMutation) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var updated *domain.Task
	err := store.RunAtomic(ctx, s.db, func(ctx context.Context, q store.DBTX) error {
		task, err := s.getOne(ctx, q, "mutate",
			`SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			return err
		}

		if err := fn(task); err != nil {
			return err
		}
		if err := s.check(task); err != nil {
			return err
		}

		result, err := q.ExecContext(ctx, `
			UPDATE tasks
			SET title = $1, description = $2, completed = $3, active = $4, updated_at = $5
			WHERE id = $6`,
			task.Title, task.Description, task.Completed, task.Active, task.UpdatedAt, id)
		if err != nil {
			log.Error("failed to update task",
				slog.String("error", redact.Error(err)),
				slog.String("task_id", id.String()))
			return store.NewStoreError("task", "mutate", "failed to update task", MapError(err))
		}
		if err := CheckRowsAffected(result, store.ErrTaskNotFound); err != nil {
			return err
		}

		updated = task
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Debug("task updated", slog.String("task_id", id.String()))
	return updated, nil
}

// check runs domain validation followed by the document schema.
func (s *PostgresTaskStore) check(task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}
	if err := s.schemas.ValidateTask(task); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	return nil
}

func (s *PostgresTaskStore) getOne(
	ctx context.Context,
	q store.DBTX,
	operation, query string,
	id uuid.UUID,
) (*domain.Task, error) {
	task, err := scanTask(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to query task",
			slog.String("operation", operation),
			slog.String("task_id", id.String()),
			slog.String("error", redact.Error(err)))
		return nil, store.NewStoreError("task", operation, "failed to query task", MapError(err))
	}
	return task, nil
}

// buildFindQuery renders the SELECT for filter. Ordering on a field without a
// supporting index is refused with store.ErrOrderUnavailable.
func buildFindQuery(filter store.TaskFilter) (string, []any, error) {
	var (
		sb   strings.Builder
		args []any
	)

	sb.WriteString("SELECT " + taskColumns + " FROM tasks WHERE user_id = $1")
	args = append(args, filter.UserID)

	if filter.ActiveOnly {
		sb.WriteString(" AND active = TRUE")
	}
	if filter.Completed != nil {
		args = append(args, *filter.Completed)
		fmt.Fprintf(&sb, " AND completed = $%d", len(args))
	}

	if filter.OrderBy != nil {
		column, ok := orderColumns[filter.OrderBy.Field]
		if !ok {
			return "", nil, fmt.Errorf("%w: %s", store.ErrOrderUnavailable, filter.OrderBy.Field)
		}
		dir := "ASC"
		if filter.OrderBy.Descending {
			dir = "DESC"
		}
		if column == "created_at" {
			fmt.Fprintf(&sb, " ORDER BY created_at %s, id %s", dir, dir)
		} else {
			fmt.Fprintf(&sb, " ORDER BY %s %s, created_at %s, id %s", column, dir, dir, dir)
		}
	}

	return sb.String(), args, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	if err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.Description,
		&task.Completed,
		&task.Active,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		return nil, err
	}
	task.CreatedAt = task.CreatedAt.UTC()
	task.UpdatedAt = task.UpdatedAt.UTC()
	return &task, nil
}
