package migrate

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/phrazzld/atom-todo-api/internal/platform/logger"
	"github.com/pressly/goose/v3/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

var testMigrations = fstest.MapFS{
	"00001_create_notes.sql": &fstest.MapFile{Data: []byte(`-- +goose Up
CREATE TABLE notes (id TEXT PRIMARY KEY);

-- +goose Down
DROP TABLE notes;
`)},
	"00002_add_body.sql": &fstest.MapFile{Data: []byte(`-- +goose Up
ALTER TABLE notes ADD COLUMN body TEXT;

-- +goose Down
ALTER TABLE notes DROP COLUMN body;
`)},
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestMigrator(t *testing.T, db *sql.DB) (*Migrator, *logger.TestLogBuffer) {
	t.Helper()
	log, buf := logger.NewTestLogger(t)
	m, err := New(db, database.DialectSQLite3, testMigrations, log)
	require.NoError(t, err)
	return m, buf
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, database.DialectSQLite3, testMigrations, nil)
	assert.Error(t, err)

	_, err = New(openTestDB(t), database.DialectSQLite3, nil, nil)
	assert.Error(t, err)
}

func TestUpDownVersion(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	m, buf := newTestMigrator(t, db)

	version, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), version)

	applied, err := m.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)
	logger.AssertLogContains(t, buf, "applied migration")

	_, err = db.ExecContext(ctx, "INSERT INTO notes (id, body) VALUES ('a', 'b')")
	require.NoError(t, err)

	applied, err = m.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, applied)

	require.NoError(t, m.Down(ctx))
	version, err = m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMigrator(t, openTestDB(t))

	statuses, err := m.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.False(t, statuses[0].Applied)

	_, err = m.Up(ctx)
	require.NoError(t, err)

	statuses, err = m.Status(ctx)
	require.NoError(t, err)
	for _, s := range statuses {
		assert.True(t, s.Applied, "migration %d should be applied", s.Version)
	}
	assert.Equal(t, int64(1), statuses[0].Version)
	assert.Equal(t, int64(2), statuses[1].Version)
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMigrator(t, openTestDB(t))

	var out bytes.Buffer
	require.NoError(t, m.Run(ctx, CommandUp, &out))
	assert.Contains(t, out.String(), "applied 2 migration(s)")

	out.Reset()
	require.NoError(t, m.Run(ctx, CommandVersion, &out))
	assert.Equal(t, "version 2\n", out.String())

	out.Reset()
	require.NoError(t, m.Run(ctx, CommandStatus, &out))
	assert.Contains(t, out.String(), "00001_create_notes.sql")
	assert.NotContains(t, out.String(), "pending")

	out.Reset()
	require.NoError(t, m.Run(ctx, CommandDown, &out))
	assert.Contains(t, out.String(), "rolled back")

	err := m.Run(ctx, "redo", &out)
	assert.ErrorIs(t, err, ErrUnknownCommand)
}
