package sqlite

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/atom-todo-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeLayoutSortsLexically(t *testing.T) {
	early := time.Date(2025, 1, 1, 0, 0, 0, 5, time.UTC)
	late := time.Date(2025, 1, 1, 0, 0, 0, 40, time.UTC)

	assert.Less(t, formatTime(early), formatTime(late))
	assert.Len(t, formatTime(early), len(formatTime(late)))

	parsed, err := parseTime(formatTime(late))
	require.NoError(t, err)
	assert.True(t, late.Equal(parsed))
}

func TestParseTimeAcceptsRFC3339(t *testing.T) {
	parsed, err := parseTime("2024-06-01T10:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC), parsed)

	_, err = parseTime("yesterday")
	assert.Error(t, err)
}

func TestDecodeTask(t *testing.T) {
	task, err := domain.NewTask(uuid.New(), "Read book", "chapter 3")
	require.NoError(t, err)
	task.Deactivate(time.Now())

	body := []byte(`{"id":"` + task.ID.String() + `","userId":"` + task.UserID.String() +
		`","title":"Read book","description":"chapter 3","completed":false,"active":false,` +
		`"createdAt":"` + formatTime(task.CreatedAt) + `","updatedAt":"` + formatTime(task.UpdatedAt) + `"}`)

	decoded, err := decodeTask(body)
	require.NoError(t, err)
	assert.Equal(t, task.ID, decoded.ID)
	assert.False(t, decoded.Active)
	assert.True(t, task.UpdatedAt.Equal(decoded.UpdatedAt))

	_, err = decodeTask([]byte(`{"id":"nope"}`))
	assert.Error(t, err)
	_, err = decodeTask([]byte(`not json`))
	assert.Error(t, err)
}
