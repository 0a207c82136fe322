package pages

import (
	"errors"
	"fmt"
	"strings"

	"coursegen/internal/course"
	"coursegen/internal/outline"
)

// ErrMissingTitle is returned by Input.Validate for blank titles.
var ErrMissingTitle = errors.New("pages: subsection title is empty")

// Input carries everything the page plan is interpolated with.
type Input struct {
	Title         string
	ModuleContext string
	ExamType      string
	Level         int
}

// Validate reports inputs the templates would render with blank interpolations.
// Synthesize itself never rejects input.
func (in Input) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return ErrMissingTitle
	}
	return nil
}

// Synthesize produces the deterministic page set for one subsection. Page
// count and titles depend only on Level; content depends on every field of
// in plus the page position.
func Synthesize(in Input) []course.Page {
	plan := PlanForLevel(in.Level)
	out := make([]course.Page, 0, len(plan.Pages))
	for i, t := range plan.Pages {
		out = append(out, course.Page{
			PageNumber:  i + 1,
			PageTitle:   t.Title,
			Content:     interpolate(t.Body, in),
			KeyTakeaway: interpolate(t.KeyTakeaway, in),
		})
	}
	return out
}

// DifficultyForLevel maps an outline level to the persisted difficulty label.
func DifficultyForLevel(level int) course.Difficulty {
	if level <= TopLevel {
		return course.Intermediate
	}
	return course.Advanced
}

// EstimatedTime gives a reading-time range for a page count.
func EstimatedTime(pageCount int) string {
	if pageCount <= 0 {
		return "0 minutes"
	}
	return fmt.Sprintf("%d-%d minutes", pageCount*5, pageCount*7)
}

// NewSubsection assembles a subsection for an outline entry from a page set.
func NewSubsection(entry outline.Entry, pages []course.Page) course.Subsection {
	n := entry.Node
	return course.Subsection{
		Title:          n.Text,
		HierarchyLevel: n.Level,
		HierarchyPath:  entry.PathString(),
		Pages:          course.Renumber(pages),
		Difficulty:     DifficultyForLevel(n.Level),
		EstimatedTime:  EstimatedTime(len(pages)),
		HasChildren:    len(n.Children) > 0,
		ChildrenCount:  len(n.Children),
	}
}

// BuildSubsection synthesizes template pages for an outline entry.
func BuildSubsection(entry outline.Entry, moduleContext, examType string) course.Subsection {
	in := InputFor(entry, moduleContext, examType)
	return NewSubsection(entry, Synthesize(in))
}

// InputFor builds the synthesizer input for an outline entry.
func InputFor(entry outline.Entry, moduleContext, examType string) Input {
	return Input{
		Title:         entry.Node.Text,
		ModuleContext: moduleContext,
		ExamType:      examType,
		Level:         entry.Node.Level,
	}
}
