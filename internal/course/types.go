package course

import (
	"fmt"
	"strings"
	"time"
)

// Difficulty is the persisted difficulty label of a subsection.
type Difficulty string

const (
	Intermediate Difficulty = "Intermediate"
	Advanced     Difficulty = "Advanced"
)

// PathSeparator joins breadcrumb titles in Subsection.HierarchyPath.
const PathSeparator = " > "

// Page is one screen of learning content inside a subsection.
type Page struct {
	PageNumber  int    `json:"pageNumber"`
	PageTitle   string `json:"pageTitle"`
	Content     string `json:"content"`
	KeyTakeaway string `json:"keyTakeaway"`
}

// Subsection is the persisted unit combining a hierarchy node with its pages.
// It is replaced whole on regeneration.
type Subsection struct {
	Title          string     `json:"title"`
	HierarchyLevel int        `json:"hierarchyLevel"`
	HierarchyPath  string     `json:"hierarchyPath"`
	Pages          []Page     `json:"pages"`
	Difficulty     Difficulty `json:"difficulty"`
	EstimatedTime  string     `json:"estimatedTime"`
	HasChildren    bool       `json:"hasChildren"`
	ChildrenCount  int        `json:"childrenCount"`
}

// Module is a course module document: raw markdown plus its generated subsections.
type Module struct {
	ID          string       `json:"id"`
	CourseID    string       `json:"courseId"`
	Title       string       `json:"title"`
	ExamType    string       `json:"examType"`
	Content     string       `json:"content"`
	Summary     string       `json:"summary,omitempty"`
	Subsections []Subsection `json:"subsections"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Validate checks that pages are numbered contiguously from 1.
func (s Subsection) Validate() error {
	for i, p := range s.Pages {
		if p.PageNumber != i+1 {
			return fmt.Errorf("subsection %q: page %d has pageNumber %d", s.Title, i, p.PageNumber)
		}
	}
	return nil
}

// Renumber rewrites page numbers so they are contiguous from 1.
func Renumber(pages []Page) []Page {
	for i := range pages {
		pages[i].PageNumber = i + 1
	}
	return pages
}

// JoinPath builds a hierarchy breadcrumb.
func JoinPath(titles []string) string {
	return strings.Join(titles, PathSeparator)
}

// SubsectionByPath returns the subsection with the given hierarchy path.
func (m *Module) SubsectionByPath(path string) (Subsection, bool) {
	if m == nil {
		return Subsection{}, false
	}
	for _, s := range m.Subsections {
		if s.HierarchyPath == path {
			return s, true
		}
	}
	return Subsection{}, false
}

// ModuleContext is the short context string handed to page templates and writers.
func (m *Module) ModuleContext() string {
	if m == nil {
		return ""
	}
	if summary := strings.TrimSpace(m.Summary); summary != "" {
		return m.Title + ": " + summary
	}
	return m.Title
}
