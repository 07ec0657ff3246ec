package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// User validation errors
var (
	ErrEmptyUserID  = errors.New("user ID cannot be empty")
	ErrEmptyEmail   = errors.New("email cannot be empty")
	ErrInvalidEmail = errors.New("invalid email format")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// User is an account identified by its email address. There are no passwords:
// knowing the email is enough to obtain a token.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NormalizeEmail lower-cases and trims an email address. All lookups and
// uniqueness checks operate on the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks that email (after normalization) looks like local@domain.tld.
func ValidateEmail(email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return NewValidationError("email", "Email is required", ErrEmptyEmail)
	}
	if !emailPattern.MatchString(email) {
		return NewValidationError("email", "Invalid email format", ErrInvalidEmail)
	}
	return nil
}

// NewUser creates a new User with the given email.
// It generates a new UUID for the user ID and sets the creation/update timestamps.
func NewUser(email string) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		ID:        uuid.New(),
		Email:     NormalizeEmail(email),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return NewValidationError("id", "User ID is required", ErrEmptyUserID)
	}
	return ValidateEmail(u.Email)
}
