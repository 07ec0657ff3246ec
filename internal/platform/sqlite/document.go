package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/atom-todo-api/internal/domain"
)

// timeLayout is fixed width so stored timestamps sort lexically in
// chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// documents written by other tools may use any RFC 3339 form
		t, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
	}
	return t.UTC(), nil
}

type taskDocument struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	Active      *bool  `json:"active,omitempty"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

func newTaskDocument(task *domain.Task) taskDocument {
	active := task.Active
	return taskDocument{
		ID:          task.ID.String(),
		UserID:      task.UserID.String(),
		Title:       task.Title,
		Description: task.Description,
		Completed:   task.Completed,
		Active:      &active,
		CreatedAt:   formatTime(task.CreatedAt),
		UpdatedAt:   formatTime(task.UpdatedAt),
	}
}

func decodeTask(body []byte) (*domain.Task, error) {
	var doc taskDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode task document: %w", err)
	}

	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid task id: %w", err)
	}
	userID, err := uuid.Parse(doc.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid task owner: %w", err)
	}
	createdAt, err := parseTime(doc.CreatedAt)
	if err != nil {
		return nil, err
	}
	updatedAt, err := parseTime(doc.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return &domain.Task{
		ID:          id,
		UserID:      userID,
		Title:       doc.Title,
		Description: doc.Description,
		Completed:   doc.Completed,
		Active:      doc.Active == nil || *doc.Active,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}

type userDocument struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func newUserDocument(user *domain.User) userDocument {
	return userDocument{
		ID:        user.ID.String(),
		Email:     user.Email,
		CreatedAt: formatTime(user.CreatedAt),
		UpdatedAt: formatTime(user.UpdatedAt),
	}
}

func decodeUser(body []byte) (*domain.User, error) {
	var doc userDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode user document: %w", err)
	}

	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id: %w", err)
	}
	createdAt, err := parseTime(doc.CreatedAt)
	if err != nil {
		return nil, err
	}
	updatedAt, err := parseTime(doc.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return &domain.User{ID: id, Email: doc.Email, CreatedAt: createdAt, UpdatedAt: updatedAt}, nil
}
