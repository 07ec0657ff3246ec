package taskquery

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/atom-todo-api/internal/config"
	"github.com/phrazzld/atom-todo-api/internal/domain"
)

// SortField is a task attribute results can be ordered by.
type SortField string

// Supported sort fields.
const (
	SortByCreatedAt SortField = "createdAt"
	SortByUpdatedAt SortField = "updatedAt"
	SortByTitle     SortField = "title"
)

// SortOrder is the direction of a sort.
type SortOrder string

// Supported sort orders.
const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ErrInvalidQuery is wrapped by every validation error Validate returns.
var ErrInvalidQuery = errors.New("invalid task query")

// Limits bounds the page size.
type Limits struct {
	DefaultLimit int
	MaxLimit     int
}

// DefaultLimits returns the page size bounds used when none are configured.
func DefaultLimits() Limits {
	return Limits{DefaultLimit: 10, MaxLimit: 100}
}

// LimitsFromConfig converts the query configuration section into Limits.
func LimitsFromConfig(cfg config.QueryConfig) Limits {
	limits := DefaultLimits()
	if cfg.DefaultLimit > 0 {
		limits.DefaultLimit = cfg.DefaultLimit
	}
	if cfg.MaxLimit >= limits.DefaultLimit {
		limits.MaxLimit = cfg.MaxLimit
	}
	return limits
}

// Params describes one page of a user's task listing.
// Zero values mean "use the default".
type Params struct {
	UserID    uuid.UUID
	Page      int
	Limit     int
	SortBy    SortField
	SortOrder SortOrder
	Completed *bool
	Title     string
	StartDate *time.Time
	EndDate   *time.Time
}

// Normalize fills in defaults and clamps the limit to limits.MaxLimit.
// Negative page and limit values are kept so Validate can reject them.
func Normalize(p Params, limits Limits) Params {
	if p.Page == 0 {
		p.Page = 1
	}
	if p.Limit == 0 {
		p.Limit = limits.DefaultLimit
	}
	if limits.MaxLimit > 0 && p.Limit > limits.MaxLimit {
		p.Limit = limits.MaxLimit
	}

	p.SortBy = SortField(strings.TrimSpace(string(p.SortBy)))
	if p.SortBy == "" {
		p.SortBy = SortByCreatedAt
	}
	p.SortOrder = SortOrder(strings.ToLower(strings.TrimSpace(string(p.SortOrder))))
	if p.SortOrder == "" {
		p.SortOrder = SortDesc
	}

	p.Title = strings.TrimSpace(p.Title)
	return p
}

// Validate checks normalized params and returns a *domain.ValidationError
// for the first problem found.
func Validate(p Params) error {
	if p.UserID == uuid.Nil {
		return domain.NewValidationError("userId", "User ID is required", ErrInvalidQuery)
	}
	if p.Page < 1 {
		return domain.NewValidationError("page", "Page must be a positive integer", ErrInvalidQuery)
	}
	if p.Limit < 1 {
		return domain.NewValidationError("limit", "Limit must be a positive integer", ErrInvalidQuery)
	}
	if !p.SortBy.Valid() {
		return domain.NewValidationError("sortBy", "sortBy must be one of createdAt, updatedAt, title", ErrInvalidQuery)
	}
	if !p.SortOrder.Valid() {
		return domain.NewValidationError("sortOrder", "sortOrder must be asc or desc", ErrInvalidQuery)
	}
	if p.StartDate != nil && p.EndDate != nil && p.StartDate.After(*p.EndDate) {
		return domain.NewValidationError("startDate", "startDate must be before or equal to endDate", ErrInvalidQuery)
	}
	return nil
}

// Valid reports whether f is a supported sort field.
func (f SortField) Valid() bool {
	switch f {
	case SortByCreatedAt, SortByUpdatedAt, SortByTitle:
		return true
	}
	return false
}

// Valid reports whether o is a supported sort order.
func (o SortOrder) Valid() bool {
	return o == SortAsc || o == SortDesc
}
