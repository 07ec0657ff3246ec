package taskquery

import "github.com/phrazzld/atom-todo-api/internal/domain"

// Page is one page of a task listing plus the metadata needed to fetch the rest.
type Page struct {
	Tasks      []*domain.Task `json:"tasks"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"totalPages"`
}

// Paginate slices out page (1-based) of size limit. A page past the end is
// empty but still carries the totals.
func Paginate(tasks []*domain.Task, page, limit int) *Page {
	total := len(tasks)
	result := &Page{
		Tasks: []*domain.Task{},
		Total: total,
		Page:  page,
		Limit: limit,
	}
	if limit < 1 || page < 1 {
		return result
	}

	result.TotalPages = (total + limit - 1) / limit

	start := (page - 1) * limit
	if start >= total {
		return result
	}
	end := min(start+limit, total)
	result.Tasks = tasks[start:end]
	return result
}
