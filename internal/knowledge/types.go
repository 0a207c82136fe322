package knowledge

import (
	"context"

	"coursegen/internal/course"
)

// PageWriter generates page bodies for one subsection using an external LLM.
// Implementations return the page array or an error; callers own fallback.
type PageWriter interface {
	WritePages(ctx context.Context, req PageRequest) ([]course.Page, error)
}

// PageRequest describes the subsection a writer is asked to fill.
type PageRequest struct {
	Title         string
	HierarchyPath string
	ModuleContext string
	ExamType      string
	Level         int
	// PageTitles is the outline the writer must follow, in order.
	PageTitles []string
}
