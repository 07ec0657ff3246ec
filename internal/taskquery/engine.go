package taskquery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/atom-todo-api/internal/domain"
	"github.com/phrazzld/atom-todo-api/internal/platform/logger"
	"github.com/phrazzld/atom-todo-api/internal/store"
)

// Source is the part of store.TaskStore the engine reads from.
type Source interface {
	FindTasks(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error)
}

// FallbackObserver is told whenever native ordering was unavailable and the
// engine sorted in memory instead.
type FallbackObserver func(field SortField)

// Engine answers task listings on top of a Source.
type Engine struct {
	source     Source
	limits     Limits
	logger     *slog.Logger
	onFallback FallbackObserver
}

// Option configures an Engine.
type Option func(*Engine)

// WithLimits overrides the default page size bounds.
func WithLimits(limits Limits) Option {
	return func(e *Engine) {
		e.limits = limits
	}
}

// WithFallbackObserver registers fn to be called on every in-memory sort fallback.
func WithFallbackObserver(fn FallbackObserver) Option {
	return func(e *Engine) {
		e.onFallback = fn
	}
}

// NewEngine creates an Engine reading from source.
func NewEngine(source Source, log *slog.Logger, opts ...Option) (*Engine, error) {
	if source == nil {
		return nil, errors.New("task source cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	e := &Engine{
		source: source,
		limits: DefaultLimits(),
		logger: log.With(slog.String("component", "task_query_engine")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Limits returns the page size bounds the engine applies.
func (e *Engine) Limits() Limits {
	return e.limits
}

// Query returns one page of the user's active tasks matching p.
// Invalid params yield a *domain.ValidationError.
func (e *Engine) Query(ctx context.Context, p Params) (*Page, error) {
	p = Normalize(p, e.limits)
	if err := Validate(p); err != nil {
		return nil, err
	}

	filter := store.TaskFilter{
		UserID:     p.UserID,
		Completed:  p.Completed,
		ActiveOnly: true,
	}
	tasks, sorted, err := e.find(ctx, filter, p.SortBy, p.SortOrder)
	if err != nil {
		return nil, err
	}

	tasks = Filter(tasks, p)
	if !sorted {
		Sort(tasks, p.SortBy, p.SortOrder)
	}

	page := Paginate(tasks, p.Page, p.Limit)

	logger.FromContextOrDefault(ctx, e.logger).Debug("task query answered",
		slog.String("user_id", p.UserID.String()),
		slog.Int("page", page.Page),
		slog.Int("limit", page.Limit),
		slog.Int("total", page.Total),
		slog.Bool("native_order", sorted))

	return page, nil
}

// ListAll returns every active task of the user, newest first.
func (e *Engine) ListAll(ctx context.Context, userID uuid.UUID) ([]*domain.Task, error) {
	if userID == uuid.Nil {
		return nil, domain.NewValidationError("userId", "User ID is required", ErrInvalidQuery)
	}

	filter := store.TaskFilter{UserID: userID, ActiveOnly: true}
	tasks, sorted, err := e.find(ctx, filter, SortByCreatedAt, SortDesc)
	if err != nil {
		return nil, err
	}

	tasks = Filter(tasks, Params{})
	if !sorted {
		Sort(tasks, SortByCreatedAt, SortDesc)
	}
	return tasks, nil
}

// find asks the source for natively ordered results, retrying unordered when
// the source cannot order by field. The boolean reports whether the returned
// slice is already in the requested order.
func (e *Engine) find(
	ctx context.Context,
	filter store.TaskFilter,
	field SortField,
	order SortOrder,
) ([]*domain.Task, bool, error) {
	log := logger.FromContextOrDefault(ctx, e.logger)

	filter.OrderBy = &store.TaskOrder{
		Field:      store.TaskOrderField(field),
		Descending: order == SortDesc,
	}
	tasks, err := e.source.FindTasks(ctx, filter)
	if err == nil {
		return tasks, true, nil
	}
	if !errors.Is(err, store.ErrOrderUnavailable) {
		log.Error("failed to find tasks",
			slog.String("error", err.Error()),
			slog.String("user_id", filter.UserID.String()))
		return nil, false, fmt.Errorf("failed to find tasks: %w", err)
	}

	log.Warn("native ordering unavailable, sorting in memory",
		slog.String("sort_by", string(field)),
		slog.String("user_id", filter.UserID.String()))
	if e.onFallback != nil {
		e.onFallback(field)
	}

	filter.OrderBy = nil
	tasks, err = e.source.FindTasks(ctx, filter)
	if err != nil {
		log.Error("failed to find tasks without ordering",
			slog.String("error", err.Error()),
			slog.String("user_id", filter.UserID.String()))
		return nil, false, fmt.Errorf("failed to find tasks: %w", err)
	}
	return tasks, false, nil
}
