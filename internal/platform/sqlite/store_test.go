package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/atom-todo-api/internal/domain"
	"github.com/phrazzld/atom-todo-api/internal/platform/docschema"
	"github.com/phrazzld/atom-todo-api/internal/platform/migrate"
	"github.com/phrazzld/atom-todo-api/internal/store"
	"github.com/pressly/goose/v3/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMigratedDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	db, err := Open(ctx, filepath.Join(t.TempDir(), "todo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	m, err := migrate.New(db, database.DialectSQLite3, Migrations(), nil)
	require.NoError(t, err)
	_, err = m.Up(ctx)
	require.NoError(t, err)
	return db
}

func newStores(t *testing.T, db store.DBTX) (*UserStore, *TaskStore) {
	t.Helper()
	schemas, err := docschema.New()
	require.NoError(t, err)
	return NewUserStore(db, schemas, nil), NewTaskStore(db, schemas, nil)
}

func mustCreateUser(t *testing.T, users *UserStore, email string) *domain.User {
	t.Helper()
	user, err := domain.NewUser(email)
	require.NoError(t, err)
	require.NoError(t, users.Create(context.Background(), user))
	return user
}

func mustCreateTask(t *testing.T, tasks *TaskStore, owner uuid.UUID, title string, created time.Time) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(owner, title, "")
	require.NoError(t, err)
	task.CreatedAt = created
	task.UpdatedAt = created
	require.NoError(t, tasks.Create(context.Background(), task))
	return task
}

func TestOpen(t *testing.T) {
	_, err := Open(context.Background(), "  ")
	assert.Error(t, err)
}

func TestUserStore(t *testing.T) {
	ctx := context.Background()
	users, _ := newStores(t, openMigratedDB(t))

	user := mustCreateUser(t, users, "Someone@Example.com")
	assert.Equal(t, "someone@example.com", user.Email)

	got, err := users.GetByEmail(ctx, " SOMEONE@example.com ")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.True(t, user.CreatedAt.Equal(got.CreatedAt))

	got, err = users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, got.Email)

	_, err = users.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrUserNotFound)
	_, err = users.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, store.ErrUserNotFound)

	dup, err := domain.NewUser("someone@example.com")
	require.NoError(t, err)
	assert.ErrorIs(t, users.Create(ctx, dup), store.ErrEmailExists)
}

func TestTaskStoreCreateAndGet(t *testing.T) {
	ctx := context.Background()
	users, tasks := newStores(t, openMigratedDB(t))
	owner := mustCreateUser(t, users, "owner@example.com")

	created := mustCreateTask(t, tasks, owner.ID, "Buy milk", time.Now().UTC())

	got, err := tasks.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Title, got.Title)
	assert.True(t, got.Active)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))

	_, err = tasks.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrTaskNotFound)

	orphan, err := domain.NewTask(uuid.New(), "orphan", "")
	require.NoError(t, err)
	assert.ErrorIs(t, tasks.Create(ctx, orphan), store.ErrInvalidEntity)

	assert.ErrorIs(t, tasks.Create(ctx, created), store.ErrDuplicate)

	invalid := *created
	invalid.ID = uuid.New()
	invalid.Title = " "
	assert.ErrorIs(t, tasks.Create(ctx, &invalid), domain.ErrValidation)
}

func TestTaskStoreFindTasks(t *testing.T) {
	ctx := context.Background()
	db := openMigratedDB(t)
	users, tasks := newStores(t, db)
	owner := mustCreateUser(t, users, "finder@example.com")
	other := mustCreateUser(t, users, "other@example.com")

	base := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	first := mustCreateTask(t, tasks, owner.ID, "first", base)
	second := mustCreateTask(t, tasks, owner.ID, "second", base.Add(time.Hour))
	third := mustCreateTask(t, tasks, owner.ID, "third", base.Add(2*time.Hour))
	mustCreateTask(t, tasks, other.ID, "someone else's", base)

	_, err := tasks.Mutate(ctx, second.ID, func(task *domain.Task) error {
		task.Toggle(base.Add(3 * time.Hour))
		return nil
	})
	require.NoError(t, err)
	_, err = tasks.Mutate(ctx, third.ID, func(task *domain.Task) error {
		task.Deactivate(base.Add(3 * time.Hour))
		return nil
	})
	require.NoError(t, err)

	t.Run("active only, newest first", func(t *testing.T) {
		got, err := tasks.FindTasks(ctx, store.TaskFilter{
			UserID:     owner.ID,
			ActiveOnly: true,
			OrderBy:    &store.TaskOrder{Field: store.TaskOrderCreatedAt, Descending: true},
		})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, second.ID, got[0].ID)
		assert.Equal(t, first.ID, got[1].ID)
	})

	t.Run("including inactive, oldest first", func(t *testing.T) {
		got, err := tasks.FindTasks(ctx, store.TaskFilter{
			UserID:  owner.ID,
			OrderBy: &store.TaskOrder{Field: store.TaskOrderCreatedAt},
		})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, first.ID, got[0].ID)
		assert.Equal(t, third.ID, got[2].ID)
		assert.False(t, got[2].Active)
	})

	t.Run("completed filter", func(t *testing.T) {
		completed := true
		got, err := tasks.FindTasks(ctx, store.TaskFilter{UserID: owner.ID, ActiveOnly: true, Completed: &completed})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, second.ID, got[0].ID)

		completed = false
		got, err = tasks.FindTasks(ctx, store.TaskFilter{UserID: owner.ID, ActiveOnly: true, Completed: &completed})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, first.ID, got[0].ID)
	})

	t.Run("unindexed order", func(t *testing.T) {
		for _, field := range []store.TaskOrderField{store.TaskOrderUpdatedAt, store.TaskOrderTitle} {
			_, err := tasks.FindTasks(ctx, store.TaskFilter{UserID: owner.ID, OrderBy: &store.TaskOrder{Field: field}})
			assert.ErrorIs(t, err, store.ErrOrderUnavailable)
		}
	})

	t.Run("unknown user yields empty slice", func(t *testing.T) {
		got, err := tasks.FindTasks(ctx, store.TaskFilter{UserID: uuid.New(), ActiveOnly: true})
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("legacy documents without active flag count as active", func(t *testing.T) {
		legacyID := uuid.New()
		_, err := db.ExecContext(ctx,
			`INSERT INTO documents (collection, id, body) VALUES ('tasks', ?, json_object(
				'id', ?, 'userId', ?, 'title', 'legacy', 'description', '', 'completed', json('false'),
				'createdAt', '2020-01-01T00:00:00Z', 'updatedAt', '2020-01-01T00:00:00Z'))`,
			legacyID.String(), legacyID.String(), owner.ID.String())
		require.NoError(t, err)

		got, err := tasks.FindTasks(ctx, store.TaskFilter{UserID: owner.ID, ActiveOnly: true})
		require.NoError(t, err)
		require.Len(t, got, 3)

		legacy, err := tasks.GetByID(ctx, legacyID)
		require.NoError(t, err)
		assert.True(t, legacy.Active)
	})
}

func TestTaskStoreMutate(t *testing.T) {
	ctx := context.Background()
	users, tasks := newStores(t, openMigratedDB(t))
	owner := mustCreateUser(t, users, "mutator@example.com")
	task := mustCreateTask(t, tasks, owner.ID, "Original", time.Now().UTC())

	title := "Renamed"
	updated, err := tasks.Mutate(ctx, task.ID, func(tk *domain.Task) error {
		return tk.Apply(domain.TaskChanges{Title: &title}, time.Now().UTC())
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)

	stored, err := tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", stored.Title)

	empty := ""
	_, err = tasks.Mutate(ctx, task.ID, func(tk *domain.Task) error {
		return tk.Apply(domain.TaskChanges{Title: &empty}, time.Now().UTC())
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	stored, err = tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", stored.Title)

	_, err = tasks.Mutate(ctx, uuid.New(), func(*domain.Task) error { return nil })
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestTaskStoreInsideCallerTransaction(t *testing.T) {
	ctx := context.Background()
	db := openMigratedDB(t)

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)

	users, tasks := newStores(t, tx)
	owner := mustCreateUser(t, users, "tx@example.com")
	task := mustCreateTask(t, tasks, owner.ID, "scoped", time.Now().UTC())
	_, err = tasks.Mutate(ctx, task.ID, func(tk *domain.Task) error {
		tk.Toggle(time.Now().UTC())
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	_, rolledBack := newStores(t, db)
	_, err = rolledBack.GetByID(ctx, task.ID)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestTaskStoreOrdersLegacyTimestampsByInstant(t *testing.T) {
	ctx := context.Background()
	db := openMigratedDB(t)
	users, tasks := newStores(t, db)
	owner := mustCreateUser(t, users, "legacy@example.com")

	insert := func(title, createdAt string) uuid.UUID {
		t.Helper()
		id := uuid.New()
		_, err := db.ExecContext(ctx,
			`INSERT INTO documents (collection, id, body) VALUES ('tasks', ?, json_object(
				'id', ?, 'userId', ?, 'title', ?, 'description', '', 'completed', json('false'),
				'active', json('true'), 'createdAt', ?, 'updatedAt', ?))`,
			id.String(), id.String(), owner.ID.String(), title, createdAt, createdAt)
		require.NoError(t, err)
		return id
	}

	noon := insert("noon", "2024-03-01T12:00:00Z")
	eleven := insert("eleven utc", "2024-03-01T13:00:00+02:00")
	halfPast := insert("noon and a half second", "2024-03-01T12:00:00.5Z")

	ids := func(got []*domain.Task) []uuid.UUID {
		out := make([]uuid.UUID, 0, len(got))
		for _, task := range got {
			out = append(out, task.ID)
		}
		return out
	}

	got, err := tasks.FindTasks(ctx, store.TaskFilter{
		UserID:  owner.ID,
		OrderBy: &store.TaskOrder{Field: store.TaskOrderCreatedAt},
	})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{eleven, noon, halfPast}, ids(got))

	got, err = tasks.FindTasks(ctx, store.TaskFilter{
		UserID:  owner.ID,
		OrderBy: &store.TaskOrder{Field: store.TaskOrderCreatedAt, Descending: true},
	})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{halfPast, noon, eleven}, ids(got))
}
