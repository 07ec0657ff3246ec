package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Length limits, counted in characters after trimming.
const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
)

// Task validation errors
var (
	ErrEmptyTaskID        = errors.New("task ID cannot be empty")
	ErrEmptyTitle         = errors.New("title cannot be empty")
	ErrTitleTooLong       = errors.New("title too long")
	ErrDescriptionTooLong = errors.New("description too long")
)

// Task is a to-do item owned by a single user.
//
// Active is false once the task has been deleted. Inactive tasks are kept in
// the store but behave as if they did not exist.
type Task struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"userId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TaskChanges is a partial update. Nil fields are left untouched.
type TaskChanges struct {
	Title       *string
	Description *string
	Completed   *bool
}

// IsEmpty reports whether the changes would modify nothing.
func (c TaskChanges) IsEmpty() bool {
	return c.Title == nil && c.Description == nil && c.Completed == nil
}

// NewTask creates an active, uncompleted task for userID.
func NewTask(userID uuid.UUID, title, description string) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Completed:   false,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return NewValidationError("id", "Task ID is required", ErrEmptyTaskID)
	}
	if t.UserID == uuid.Nil {
		return NewValidationError("userId", "User ID is required", ErrEmptyUserID)
	}
	if err := ValidateTitle(t.Title); err != nil {
		return err
	}
	return ValidateDescription(t.Description)
}

// ValidateTitle checks a title after trimming.
func ValidateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return NewValidationError("title", "Title is required", ErrEmptyTitle)
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return NewValidationError("title",
			fmt.Sprintf("Title must be less than %d characters", MaxTitleLength), ErrTitleTooLong)
	}
	return nil
}

// ValidateDescription checks a description after trimming. Empty is allowed.
func ValidateDescription(description string) error {
	if utf8.RuneCountInString(strings.TrimSpace(description)) > MaxDescriptionLength {
		return NewValidationError("description",
			fmt.Sprintf("Description must be less than %d characters", MaxDescriptionLength),
			ErrDescriptionTooLong)
	}
	return nil
}

// Apply copies the non-nil fields of changes onto the task, trimming strings,
// and stamps UpdatedAt. The task is left unmodified if the result is invalid.
func (t *Task) Apply(changes TaskChanges, now time.Time) error {
	next := *t
	if changes.Title != nil {
		next.Title = strings.TrimSpace(*changes.Title)
	}
	if changes.Description != nil {
		next.Description = strings.TrimSpace(*changes.Description)
	}
	if changes.Completed != nil {
		next.Completed = *changes.Completed
	}
	next.UpdatedAt = now.UTC()

	if err := next.Validate(); err != nil {
		return err
	}
	*t = next
	return nil
}

// Toggle flips the completion state.
func (t *Task) Toggle(now time.Time) {
	t.Completed = !t.Completed
	t.UpdatedAt = now.UTC()
}

// Deactivate soft-deletes the task.
func (t *Task) Deactivate(now time.Time) {
	t.Active = false
	t.UpdatedAt = now.UTC()
}

// OwnedBy reports whether userID owns the task.
func (t *Task) OwnedBy(userID uuid.UUID) bool {
	return t.UserID == userID
}
