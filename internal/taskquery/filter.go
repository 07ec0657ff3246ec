package taskquery

import (
	"cmp"
	"slices"
	"strings"

	"github.com/phrazzld/atom-todo-api/internal/domain"
)

// Filter returns the tasks matching p. Inactive tasks never match, even if
// the store already excluded them. Both date bounds are inclusive and apply
// to CreatedAt. The title match is a case-insensitive substring match.
// The result is never nil and preserves input order.
func Filter(tasks []*domain.Task, p Params) []*domain.Task {
	needle := strings.ToLower(strings.TrimSpace(p.Title))
	out := make([]*domain.Task, 0, len(tasks))

	for _, task := range tasks {
		if task == nil || !task.Active {
			continue
		}
		if p.Completed != nil && task.Completed != *p.Completed {
			continue
		}
		if p.StartDate != nil && task.CreatedAt.Before(*p.StartDate) {
			continue
		}
		if p.EndDate != nil && task.CreatedAt.After(*p.EndDate) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(task.Title), needle) {
			continue
		}
		out = append(out, task)
	}

	return out
}

// Sort orders tasks in place by field. Equal keys fall back to CreatedAt and
// then ID, in the same direction, so the order is total.
func Sort(tasks []*domain.Task, field SortField, order SortOrder) {
	slices.SortStableFunc(tasks, func(a, b *domain.Task) int {
		c := compareTasks(a, b, field)
		if order == SortDesc {
			return -c
		}
		return c
	})
}

func compareTasks(a, b *domain.Task, field SortField) int {
	var c int
	switch field {
	case SortByUpdatedAt:
		c = a.UpdatedAt.Compare(b.UpdatedAt)
	case SortByTitle:
		c = strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	}
	if c != 0 {
		return c
	}
	if c = a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID.String(), b.ID.String())
}
